// Package address implements the word-phrase address scheme. An address is
// derived from a secret seed and has the form ZED-word-word-word-word-cccc,
// where the four words come from a fixed wordlist and cccc is the first four
// hex characters of the SHA-256 of the word phrase. The consensus core treats
// addresses as opaque identifiers; key custody stays with the wallet.
package address

import (
	"bufio"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Prefix is carried by every valid address.
const Prefix = "ZED"

// wordCount is the number of wordlist words in an address phrase.
const wordCount = 4

// minWords is the smallest wordlist accepted for derivation.
const minWords = 2048

// ErrShortWordlist is returned when the wordlist resource is too small to
// derive addresses from.
var ErrShortWordlist = errors.New("wordlist must contain at least 2048 words")

// =============================================================================

// Wallet pairs a derived address with the seed that owns it.
type Wallet struct {
	Address string `json:"address"`
	Seed    string `json:"seed"`
}

// Book holds the wordlist used to derive addresses. It is loaded once and
// never mutated.
type Book struct {
	words []string
}

// NewBook constructs a Book from an in-memory wordlist.
func NewBook(words []string) (*Book, error) {
	if len(words) < minWords {
		return nil, ErrShortWordlist
	}

	return &Book{words: words}, nil
}

// LoadBook reads the wordlist resource from disk, one word per line.
func LoadBook(path string) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open wordlist: %w", err)
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word != "" {
			words = append(words, word)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("unable to read wordlist: %w", err)
	}

	return NewBook(words)
}

// Generate creates a wallet from a fresh random seed.
func (b *Book) Generate() (Wallet, error) {
	seed := make([]byte, 16)
	if _, err := rand.Read(seed); err != nil {
		return Wallet{}, err
	}

	return b.FromSeed(hex.EncodeToString(seed))
}

// FromSeed derives the wallet for the specified seed. Derivation is
// deterministic so a seed always reproduces the same address.
func (b *Book) FromSeed(seed string) (Wallet, error) {
	if seed == "" {
		return Wallet{}, errors.New("seed must not be empty")
	}

	digest := sha256.Sum256([]byte(seed))

	// Two bytes of the digest select each word.
	words := make([]string, wordCount)
	for i := 0; i < wordCount; i++ {
		idx := binary.BigEndian.Uint16(digest[i*2:]) % uint16(len(b.words))
		words[i] = b.words[idx]
	}

	phrase := strings.Join(words, "-")

	return Wallet{
		Address: fmt.Sprintf("%s-%s-%s", Prefix, phrase, checksum(phrase)),
		Seed:    seed,
	}, nil
}

// VerifyOwnership reports whether the seed derives the claimed address.
func (b *Book) VerifyOwnership(addr string, seed string) bool {
	wallet, err := b.FromSeed(seed)
	if err != nil {
		return false
	}

	return wallet.Address == addr
}

// =============================================================================

// Validate checks the structure and checksum of an address. It needs no
// wordlist so any validator can run it.
func Validate(addr string) bool {
	if !strings.HasPrefix(addr, Prefix+"-") {
		return false
	}

	parts := strings.Split(addr, "-")
	if len(parts) != wordCount+2 {
		return false
	}

	phrase := strings.Join(parts[1:len(parts)-1], "-")
	return parts[len(parts)-1] == checksum(phrase)
}

// checksum produces the four hex character suffix for a word phrase.
func checksum(phrase string) string {
	digest := sha256.Sum256([]byte(phrase))
	return hex.EncodeToString(digest[:])[:4]
}
