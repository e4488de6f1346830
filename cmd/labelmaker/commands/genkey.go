package commands

import (
	"encoding/hex"
	"fmt"

	indigocrypto "github.com/bluesky-social/indigo/atproto/crypto"
	"github.com/spf13/cobra"

	"github.com/teranos/labelmaker/errors"
)

// GenKeyCmd generates a new secp256k1 signing key suitable for the
// labeler's signing_key configuration value, and prints the did:key form
// of its public key for publishing in a DID document.
var GenKeyCmd = &cobra.Command{
	Use:   "genkey",
	Short: "Generate a secp256k1 signing key",
	RunE: func(cmd *cobra.Command, args []string) error {
		priv, err := indigocrypto.GeneratePrivateKeyK256()
		if err != nil {
			return errors.Wrap(err, "generate signing key")
		}

		fmt.Printf("signing_key = %s\n", hex.EncodeToString(priv.Bytes()))
		fmt.Printf("did:key     = %s\n", priv.Public().DIDKey())
		return nil
	},
}
