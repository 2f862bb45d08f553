// Package config defines the settings shared by the condition server and its
// clients and provides helpers to load, validate and save them in YAML format.
//
// Besides connection settings, the server reads its alarm definitions and
// simulated trigger feeds from the same file.
package config
