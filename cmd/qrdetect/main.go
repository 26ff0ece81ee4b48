package main

import "github.com/factura-tools/qrdetect/cmd/qrdetect/cmd"

func main() {
	cmd.Execute()
}
