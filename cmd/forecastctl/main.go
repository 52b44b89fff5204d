package main

import "forecast-guard/cmd/forecastctl/cmd"

func main() {
	cmd.Execute()
}
