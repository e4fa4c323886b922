package main

import "github.com/mealeark/education-cryptomoji/app/wallet/cmd"

func main() {
	cmd.Execute()
}
