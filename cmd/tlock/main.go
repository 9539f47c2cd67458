// Command tlock is a reference CLI for the timelock encryption core: it
// wraps tlock.Encrypt/tlock.Decrypt with a tlock Recipient/Identity bound to a
// drand-compatible HTTP relay (spec §6 "CLI surface is out of scope for the
// core; a reference implementation provides...").
package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/anisharma07/tlock"
	"github.com/anisharma07/tlock/armor"
	"github.com/anisharma07/tlock/internal/plugin"
	httpnet "github.com/anisharma07/tlock/networks/http"
)

const armorBeginMarker = "-----BEGIN AGE ENCRYPTED FILE-----"

// Exit codes (spec §6): 0 success, 1 user error, 2 too-early, 3
// I/O/network, 4 authentication/crypto failure.
const (
	exitUserError    = 1
	exitTooEarly     = 2
	exitIOOrNetwork  = 3
	exitAuthOrCrypto = 4
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	root := &cobra.Command{
		Use:   "tlock",
		Short: "timelock-encrypt and decrypt files against a drand-style beacon",
	}

	var relay string
	var rps float64
	var networkPlugin string
	root.PersistentFlags().StringVar(&relay, "relay", "https://api.drand.sh", "drand-compatible HTTP relay base URL")
	root.PersistentFlags().Float64Var(&rps, "rate", httpnet.DefaultRequestsPerSecond, "max relay requests per second")
	root.PersistentFlags().StringVar(&networkPlugin, "network-plugin", "", "delegate chain info/beacon lookups to a tlock-plugin-<name> subprocess instead of --relay")

	var armorOut bool

	encryptCmd := &cobra.Command{
		Use:   "encrypt <round> <input> <output>",
		Short: "encrypt input to output, unlockable once round's beacon is published",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			round, err := parseRound(args[0])
			if err != nil {
				return userError(err)
			}
			return runEncrypt(relay, rps, networkPlugin, round, args[1], args[2], armorOut)
		},
	}
	encryptCmd.Flags().BoolVar(&armorOut, "armor", false, "wrap output in ASCII armor")

	decryptCmd := &cobra.Command{
		Use:   "decrypt <input> <output>",
		Short: "decrypt a tlock-encrypted file, once its round's beacon is available",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecrypt(relay, rps, networkPlugin, args[0], args[1])
		},
	}

	root.AddCommand(encryptCmd, decryptCmd)

	if err := root.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func parseRound(s string) (uint64, error) {
	var round uint64
	if _, err := fmt.Sscanf(s, "%d", &round); err != nil {
		return 0, fmt.Errorf("invalid round %q: %w", s, err)
	}
	return round, nil
}

func networkFor(relay string, rps float64, networkPlugin string) (tlock.Network, error) {
	if networkPlugin != "" {
		return plugin.New(networkPlugin), nil
	}
	return httpnet.New(relay, rps)
}

func runEncrypt(relay string, rps float64, networkPlugin string, round uint64, inPath, outPath string, armorOut bool) error {
	plaintext, err := os.ReadFile(inPath)
	if err != nil {
		return ioError(err)
	}

	client, err := networkFor(relay, rps, networkPlugin)
	if err != nil {
		return userError(err)
	}

	recipient := tlock.NewEncrypter(client, round)

	var body bytes.Buffer
	if err := tlock.Encrypt(&body, plaintext, recipient); err != nil {
		return err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return ioError(err)
	}
	defer out.Close()

	if armorOut {
		if err := armor.Encode(out, body.Bytes()); err != nil {
			return ioError(err)
		}
	} else if _, err := out.Write(body.Bytes()); err != nil {
		return ioError(err)
	}

	log.Info().Uint64("round", round).Str("output", outPath).Msg("encrypted")
	return nil
}

func runDecrypt(relay string, rps float64, networkPlugin string, inPath, outPath string) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return ioError(err)
	}
	if strings.HasPrefix(string(data), armorBeginMarker) {
		decoded, err := armor.Decode(bytes.NewReader(data))
		if err != nil {
			return userError(err)
		}
		data = decoded
	}

	client, err := networkFor(relay, rps, networkPlugin)
	if err != nil {
		return userError(err)
	}

	identity := tlock.NewDecrypter(client)
	plaintext, err := tlock.Decrypt(bytes.NewReader(data), identity)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outPath, plaintext, 0o600); err != nil {
		return ioError(err)
	}
	log.Info().Str("output", outPath).Msg("decrypted")
	return nil
}

func exitCodeFor(err error) int {
	var terr *tlock.TooEarlyError
	if errors.As(err, &terr) {
		return exitTooEarly
	}
	var cerr *codedError
	if errors.As(err, &cerr) {
		return cerr.code
	}
	var terr2 *tlock.Error
	if errors.As(err, &terr2) {
		switch terr2.Kind {
		case tlock.KindTooEarly:
			return exitTooEarly
		case tlock.KindNetwork:
			return exitIOOrNetwork
		case tlock.KindAuthentication, tlock.KindInvalidCiphertext:
			return exitAuthOrCrypto
		default:
			return exitUserError
		}
	}
	return exitUserError
}

type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

func userError(err error) error { return &codedError{code: exitUserError, err: err} }
func ioError(err error) error   { return &codedError{code: exitIOOrNetwork, err: err} }
