package main

import "github.com/David-Botos/warehouse-ingress/cmd"

func main() {
	cmd.Execute()
}
