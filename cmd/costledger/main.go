package main

import (
	"os"

	"github.com/shopspring/decimal"

	"costledger/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	// Amounts leave the process as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	os.Exit(cli.Execute())
}
