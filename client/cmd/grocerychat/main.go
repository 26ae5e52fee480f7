package main

import (
	"os"

	"github.com/pohaoc29/GroceryShopperAI/client/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
