// Package prompt reads passphrases and seed material interactively from the
// terminal during key file creation and opening.
package prompt

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"golang.org/x/term"
)

// ErrPassphraseMismatch is returned when the passphrase confirmation does
// not match the first entry.
var ErrPassphraseMismatch = errors.New("the entered passphrases do not match")

// readPassphrase reads a passphrase without echoing it when stdin is a
// terminal, falling back to a plain line read otherwise (e.g. when piped in
// scripts or tests).
func readPassphrase(prefix string) ([]byte, error) {
	fmt.Printf("%s: ", prefix)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		pass, err := term.ReadPassword(fd)
		fmt.Println()
		return pass, err
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return nil, err
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}

// PrivatePass prompts for the private passphrase that protects the key file.
// When confirm is set, the passphrase must be entered twice and both entries
// must match.
func PrivatePass(confirm bool) ([]byte, error) {
	pass, err := readPassphrase("Enter the private passphrase for the key file")
	if err != nil {
		return nil, err
	}

	if !confirm {
		return pass, nil
	}

	again, err := readPassphrase("Confirm passphrase")
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(pass, again) {
		return nil, ErrPassphraseMismatch
	}

	return pass, nil
}

// Seed returns a fresh random seed suitable for a new master key.
func Seed() ([]byte, error) {
	return hdkeychain.GenerateSeed(hdkeychain.RecommendedSeedLen)
}
