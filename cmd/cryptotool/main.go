// Command cryptotool derives keys from account credentials and decrypts or
// encrypts cipher strings offline, for debugging vault data.
package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	vault "github.com/teiwaz/keywarden"
)

var (
	username           string
	password           string
	symmetricKeyCipher string
	privateKeyCipher   string
	cipherString       string
	hashIterations     uint32
	toString           bool
	encrypt            bool
)

func init() {
	rootCmd.Flags().StringVar(&username, "username", "", "account email")
	rootCmd.Flags().StringVar(&password, "password", "", "master password")
	rootCmd.Flags().StringVar(&symmetricKeyCipher, "symmetric-key-cipher", "", "the user's wrapped symmetric key cipher string")
	rootCmd.Flags().StringVar(&privateKeyCipher, "private-key-cipher", "", "the user's wrapped RSA private key cipher string, for decrypting RSA ciphers")
	rootCmd.Flags().StringVar(&cipherString, "cipher", "", "cipher string to decrypt")
	rootCmd.Flags().Uint32Var(&hashIterations, "hash-iterations", 100000, "PBKDF2 iteration count")
	rootCmd.Flags().BoolVar(&toString, "to-string", false, "also print the decrypted data as a string")
	rootCmd.Flags().BoolVar(&encrypt, "encrypt", false, "encrypt stdin instead of decrypting")

	_ = rootCmd.MarkFlagRequired("username")
	_ = rootCmd.MarkFlagRequired("password")
	_ = rootCmd.MarkFlagRequired("symmetric-key-cipher")
}

var rootCmd = &cobra.Command{
	Use:   "cryptotool",
	Short: "Offline key derivation and cipher string decryption",
	Long: `Derives the master key and user keys from account credentials, then
decrypts a given cipher string or encrypts data read from stdin.

Decryption handles both symmetric cipher strings (with the user's own keys)
and RSA cipher strings (via --private-key-cipher).`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !encrypt && cipherString == "" {
			return fmt.Errorf("either a cipher (to decrypt) or --encrypt must be specified")
		}

		keys, err := deriveUserKeys()
		if err != nil {
			return err
		}
		defer keys.Destroy()

		if encrypt {
			return encryptStdin(keys)
		}
		return decryptCipher(keys)
	},
}

func deriveUserKeys() (*vault.EncMacKeys, error) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Deriving keys..."
	s.Start()
	defer s.Stop()

	params := vault.KDFParams{Function: vault.KDFPbkdf2, Iterations: hashIterations}
	masterKey, err := vault.CreateMasterKey(username, []byte(password), params)
	if err != nil {
		return nil, err
	}
	defer masterKey.Destroy()

	keyCipher, err := vault.ParseCipher(symmetricKeyCipher)
	if err != nil {
		return nil, fmt.Errorf("parsing symmetric key cipher: %w", err)
	}
	return vault.DecryptSymmetricKeys(keyCipher, masterKey)
}

func encryptStdin(keys *vault.EncMacKeys) error {
	input, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	c, err := vault.EncryptCipher(input, keys)
	if err != nil {
		return err
	}
	fmt.Println(c.Encode())
	return nil
}

func decryptCipher(keys *vault.EncMacKeys) error {
	c, err := vault.ParseCipher(cipherString)
	if err != nil {
		return fmt.Errorf("parsing cipher: %w", err)
	}

	var plain []byte
	if privateKeyCipher != "" {
		keyCipher, err := vault.ParseCipher(privateKeyCipher)
		if err != nil {
			return fmt.Errorf("parsing private key cipher: %w", err)
		}
		der, err := keyCipher.Decrypt(keys)
		if err != nil {
			return fmt.Errorf("decrypting private key: %w", err)
		}
		privateKey := vault.NewDerPrivateKey(der)
		defer privateKey.Destroy()

		plain, err = c.DecryptWithPrivateKey(privateKey)
		if err != nil {
			return err
		}
	} else {
		plain, err = c.Decrypt(keys)
		if err != nil {
			return err
		}
	}

	color.Green("Decrypted cipher:")
	fmt.Println(base64.StdEncoding.EncodeToString(plain))
	if toString {
		color.Green("As string:")
		fmt.Println(string(plain))
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}
