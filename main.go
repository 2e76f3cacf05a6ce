// The main package for the pricecrawler executable.
package main

import "pyaterochka-price-crawler/cmd"

func main() {
	cmd.Execute()
}
