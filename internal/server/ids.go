package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/klistra/client-go/internal/apierrors"
)

var adjectives = []string{
	"happy", "fast", "brave", "bright", "calm", "clever", "cool", "eager", "fancy", "gentle",
	"grand", "great", "kind", "lively", "lucky", "mighty", "nice", "noble", "proud", "quick",
	"quiet", "smart", "strong", "sweet", "tough", "wild", "wise", "young", "bold", "crisp",
	"funny", "jolly", "merry", "silly", "sunny", "vivid", "witty", "zesty", "lazy", "busy",
	"tiny", "huge", "soft", "loud", "magic", "epic", "super", "mega", "ultra", "hyper",
}

var nouns = []string{
	"ape", "bat", "bee", "bug", "cat", "cow", "crab", "crow", "dog", "dove", "duck", "eel",
	"elk", "fox", "frog", "goat", "hare", "hawk", "jay", "lamb", "lion", "mole", "moose",
	"mouse", "otter", "owl", "panda", "pig", "pony", "rabbit", "rat", "seal", "shark",
	"sheep", "snail", "snake", "swan", "tiger", "toad", "whale", "wolf", "zebra",
	"apple", "banana", "grape", "kiwi", "lemon", "lime", "mango", "melon", "olive", "orange",
	"book", "cup", "door", "bed", "phone", "shoe", "lamp", "clock", "key", "glass", "plate",
	"paris", "rome", "lima", "cairo", "osaka", "lagos", "milan", "perth", "tokyo", "seoul",
	"pizza", "donut", "taco", "sushi", "burger", "cookie", "muffin", "cactus", "rocket", "comet",
}

const (
	idAttempts     = 100
	fallbackLength = 16
	fallbackChars  = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// idGenerator produces paste ids of the form adjective-noun-xxxxxx, falling
// back to a random alphanumeric id when no free word id is found.
type idGenerator struct {
	rand  io.Reader
	taken func(ctx context.Context, id string) (bool, error)
}

func pick(r io.Reader, n int) (int, error) {
	v, err := rand.Int(r, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

func (g *idGenerator) wordID() (string, error) {
	a, err := pick(g.rand, len(adjectives))
	if err != nil {
		return "", err
	}
	n, err := pick(g.rand, len(nouns))
	if err != nil {
		return "", err
	}
	suffix := make([]byte, 3)
	if _, err := io.ReadFull(g.rand, suffix); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%s", adjectives[a], nouns[n], hex.EncodeToString(suffix)), nil
}

func (g *idGenerator) fallbackID() (string, error) {
	b := make([]byte, fallbackLength)
	for i := range b {
		idx, err := pick(g.rand, len(fallbackChars))
		if err != nil {
			return "", err
		}
		b[i] = fallbackChars[idx]
	}
	return string(b), nil
}

// Generate returns an id not currently taken.
func (g *idGenerator) Generate(ctx context.Context) (string, error) {
	for i := 0; i < idAttempts; i++ {
		id, err := g.wordID()
		if err != nil {
			return "", fmt.Errorf("generate id: %w", err)
		}
		taken, err := g.taken(ctx, id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
	return g.fallbackID()
}

// storeTaken reports whether id names a record in store.
func storeTaken(store Store) func(ctx context.Context, id string) (bool, error) {
	return func(ctx context.Context, id string) (bool, error) {
		_, err := store.GetPaste(ctx, id)
		if errors.Is(err, apierrors.ErrPasteNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return true, nil
	}
}
