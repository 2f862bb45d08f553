package main

import "github.com/oshokin/alarm-conditions/cmd/condition-server/cmd"

func main() {
	cmd.Execute()
}
