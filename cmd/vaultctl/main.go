package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/snippetvault/internal/vaultctl"
)

func main() {
	os.Exit(vaultctl.Run(context.Background(), os.Args[1:], os.Stdout))
}
