package main

import "github.com/oshokin/alarm-conditions/cmd/condition-ctl/cmd"

func main() {
	cmd.Execute()
}
