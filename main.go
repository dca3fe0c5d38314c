/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/itparc/inventory/cmd"

func main() {
	cmd.Execute()
}
