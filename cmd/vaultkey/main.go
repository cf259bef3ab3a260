// Command vaultkey prints a fresh ACCOUNT_VAULT_KEY for provisioning.
package main

import (
	"fmt"
	"os"

	"slotsniper/internal/vault"
)

func main() {
	key, err := vault.GenerateKey()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(key)
}
