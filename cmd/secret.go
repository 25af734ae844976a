package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/melih-ucgun/clonectl/internal/clone"
	"github.com/melih-ucgun/clonectl/internal/consts"
	"github.com/melih-ucgun/clonectl/internal/crypto"
	"github.com/melih-ucgun/clonectl/internal/snapshot"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage snapshot encryption",
	Long:  `Utilities for generating keys and encrypting/decrypting snapshot documents.`,
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a new AES key, or an age key pair with --age",
	Run: func(cmd *cobra.Command, args []string) {
		useAge, _ := cmd.Flags().GetBool("age")
		if useAge {
			identity, recipient, err := crypto.GenerateAgeKey()
			if err != nil {
				pterm.Error.Println("Failed to generate key:", err)
				os.Exit(clone.ExitOther)
			}
			if write, _ := cmd.Flags().GetBool("write"); write {
				path, err := writeIdentity(identity)
				if err != nil {
					pterm.Error.Println("Failed to write identity:", err)
					os.Exit(clone.ExitOther)
				}
				pterm.Success.Printf("Age identity written to %s\n", path)
			} else {
				pterm.Success.Println("Generated age identity (keep it secret):")
				fmt.Println(identity)
			}
			pterm.Info.Println("Recipient for --recipient:")
			fmt.Println(recipient)
			return
		}

		key, err := crypto.GenerateKey()
		if err != nil {
			pterm.Error.Println("Failed to generate key:", err)
			os.Exit(clone.ExitOther)
		}
		pterm.Success.Println("Generated Encryption Key:")
		fmt.Println(key)
		pterm.Info.Println("Pass it with --encryption-key or set CLONECTL_ENCRYPTION_KEY.")
	},
}

var encryptCmd = &cobra.Command{
	Use:   "encrypt [file]",
	Short: "Encrypt a plain snapshot document in place",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		keyStr, _ := cmd.Flags().GetString("encryption-key")
		recipients, _ := cmd.Flags().GetStringSlice("recipient")

		var key []byte
		if keyStr != "" {
			var err error
			if key, err = crypto.ParseKey(keyStr); err != nil {
				pterm.Error.Println(err)
				os.Exit(clone.ExitDecrypt)
			}
		}
		if key == nil && len(recipients) == 0 {
			pterm.Error.Println("--encryption-key or --recipient is required")
			os.Exit(clone.ExitOther)
		}

		snap, err := (&snapshot.Store{}).Read(args[0])
		if err != nil {
			pterm.Error.Println("Encryption failed:", err)
			os.Exit(clone.ExitCode(err))
		}
		if err := (&snapshot.Store{Key: key, Recipients: recipients}).Write(args[0], snap); err != nil {
			pterm.Error.Println("Encryption failed:", err)
			os.Exit(clone.ExitOther)
		}
		pterm.Success.Printf("%s encrypted\n", args[0])
	},
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt [file]",
	Short: "Print a snapshot document in plain text",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		keyStr, _ := cmd.Flags().GetString("encryption-key")
		identityFile, _ := cmd.Flags().GetString("identity")

		st := &snapshot.Store{}
		if keyStr != "" {
			key, err := crypto.ParseKey(keyStr)
			if err != nil {
				pterm.Error.Println(err)
				os.Exit(clone.ExitDecrypt)
			}
			st.Key = key
		}
		identity, err := readIdentity(identityFile)
		if err != nil {
			pterm.Error.Println(err)
			os.Exit(clone.ExitOther)
		}
		st.Identities = identity

		snap, err := st.Read(args[0])
		if err != nil {
			pterm.Error.Println("Decryption failed:", err)
			os.Exit(clone.ExitCode(err))
		}
		data, err := snapshot.Encode(snap)
		if err != nil {
			pterm.Error.Println(err)
			os.Exit(clone.ExitOther)
		}
		os.Stdout.Write(data)
	},
}

func init() {
	rootCmd.AddCommand(secretCmd)
	secretCmd.AddCommand(keygenCmd)
	secretCmd.AddCommand(encryptCmd)
	secretCmd.AddCommand(decryptCmd)

	keygenCmd.Flags().Bool("age", false, "generate an age identity and recipient")
	keygenCmd.Flags().Bool("write", false, "store the age identity as the default identity file")
	for _, c := range []*cobra.Command{encryptCmd, decryptCmd} {
		c.Flags().String("encryption-key", os.Getenv("CLONECTL_ENCRYPTION_KEY"), "AES key")
	}
	encryptCmd.Flags().StringSlice("recipient", nil, "age recipients")
	decryptCmd.Flags().String("identity", "", "age identity file (default ~/.clonectl/age.key)")
}

// writeIdentity stores identity at the default identity path, refusing to
// replace an existing file.
func writeIdentity(identity string) (string, error) {
	path, err := consts.GetAgeIdentityPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(identity + "\n"); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}
