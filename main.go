/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/talent-hunters/bookportal/cmd"

func main() {
	cmd.Execute()
}
