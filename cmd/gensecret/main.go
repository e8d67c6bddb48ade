// Command gensecret prints a fresh challenge-signing secret suitable for
// HMAC_SECRET.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

func main() {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("HMAC_SECRET=%s\n", hex.EncodeToString(secret))
}
