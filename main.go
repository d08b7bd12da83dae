// Command spread renders labeled numeric samples as horizontal box-plot
// charts.
package main

import "github.com/derickschaefer/spread/cmd"

func main() {
	cmd.Execute()
}
