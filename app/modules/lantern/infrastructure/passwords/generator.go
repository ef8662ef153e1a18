// Package lanternpasswords produces hack session passwords, their decoys and the hints issued
// for the real one.
package lanternpasswords

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	lanternservice "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/application"
	lanterntypes "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/domain"
	"github.com/brianvoe/gofakeit/v7"
)

var (
	ErrEmptyPassword = errors.New("password must not be empty")
	ErrDecoyCount    = errors.New("decoy count must not be negative")
)

// maxAttempts bounds the search for a distinct decoy before falling back to mutation.
const maxAttempts = 50

// Generator builds password sets from gofakeit word lists. It is safe for concurrent use.
type Generator struct {
	mu    sync.Mutex
	faker *gofakeit.Faker
}

var _ lanternservice.PasswordGenerator = (*Generator)(nil)

// NewGenerator returns a Generator. A zero seed draws a random one.
func NewGenerator(seed uint64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// NewPassword returns an adjective-noun-number password such as "quietharbor42".
func (g *Generator) NewPassword() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.word() + g.word() + fmt.Sprintf("%02d", g.faker.Number(0, 99))
}

// Generate returns secret with its hints plus decoyCount distinct decoys. Half of the decoys
// are fresh words of similar length, the rest are near-copies of secret so that a single hint
// never singles it out.
func (g *Generator) Generate(secret string, decoyCount int) (lanternservice.PasswordSet, error) {
	if secret == "" {
		return lanternservice.PasswordSet{}, ErrEmptyPassword
	}
	if decoyCount < 0 {
		return lanternservice.PasswordSet{}, ErrDecoyCount
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	seen := map[string]bool{secret: true}
	decoys := make([]lanterntypes.Password, 0, decoyCount)
	for i := range decoyCount {
		var d string
		if i%2 == 0 {
			d = g.similarWord(len(secret), seen)
		} else {
			d = g.mutate(secret, seen)
		}
		seen[d] = true
		decoys = append(decoys, lanterntypes.Password{Value: d})
	}

	return lanternservice.PasswordSet{
		Real:   lanterntypes.Password{Value: secret, Hints: Hints(secret, g.faker.Number)},
		Decoys: decoys,
	}, nil
}

// Hints describes secret: its first one or two characters, its last one or two, one interior
// character when it is longer than five, and its length. number(lo, hi) picks an int in
// [lo, hi]; the extra character and the interior position are drawn from it, so the same
// secret yields different hints from one session to the next.
func Hints(secret string, number func(lo, hi int) int) []string {
	r := []rune(secret)
	n := len(r)
	if n == 0 {
		return nil
	}

	startLen := min(1+number(0, 1), n)
	endLen := min(1+number(0, 1), n)

	hints := []string{
		"start " + string(r[:startLen]),
		"end " + string(r[n-endLen:]),
	}
	if n > 5 {
		pos := number(2, n-1) // 1-based, never the first or last character
		hints = append(hints, fmt.Sprintf("middle %d %c", pos, r[pos-1]))
	}
	hints = append(hints, fmt.Sprintf("length %d", n))
	return hints
}

// word returns a lowercase, letters-only word.
func (g *Generator) word() string {
	for range maxAttempts {
		w := strings.Map(func(c rune) rune {
			if unicode.IsLetter(c) {
				return unicode.ToLower(c)
			}
			return -1
		}, g.faker.Word())
		if w != "" {
			return w
		}
	}
	return g.faker.Letter() + g.faker.Letter()
}

func (g *Generator) similarWord(length int, seen map[string]bool) string {
	for range maxAttempts {
		w := g.word() + g.word() + fmt.Sprintf("%02d", g.faker.Number(0, 99))
		if diff := len(w) - length; diff >= -2 && diff <= 2 && !seen[w] {
			return w
		}
	}
	return g.mutate(strings.Repeat("x", max(length, 1)), seen)
}

// mutate changes one or two characters of base until the result is unseen.
func (g *Generator) mutate(base string, seen map[string]bool) string {
	r := []rune(base)
	for attempt := 0; ; attempt++ {
		out := append([]rune(nil), r...)
		edits := 1 + g.faker.Number(0, 1)
		if attempt > maxAttempts {
			// tiny alphabets can run out of single edits; grow instead
			out = append(out, []rune(g.faker.Letter())...)
		}
		for range edits {
			i := g.faker.Number(0, len(out)-1)
			out[i] = g.replacement(out[i])
		}
		if s := string(out); !seen[s] {
			return s
		}
	}
}

func (g *Generator) replacement(c rune) rune {
	for {
		var next rune
		if unicode.IsDigit(c) {
			next = rune('0' + g.faker.Number(0, 9))
		} else {
			next = []rune(strings.ToLower(g.faker.Letter()))[0]
		}
		if next != c {
			return next
		}
	}
}
