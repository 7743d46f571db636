package token

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Token is an opaque claim marker stored in the claim_token column.
type Token string

func (t Token) String() string { return string(t) }

// Generator produces claim tokens. The zero value is not usable; call NewGenerator.
type Generator struct {
	mu       sync.Mutex
	now      func() time.Time
	pid      int
	sequence uint64
}

// Option customizes a Generator.
type Option func(*Generator)

// WithClock replaces the time source. Tests use it to freeze the clock.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGenerator creates a Generator bound to the current process.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{now: time.Now, pid: os.Getpid()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a new token of the form <nanos>-<pid>-<sequence>-<random>.
func (g *Generator) Generate() Token {
	g.mu.Lock()
	g.sequence++
	seq := g.sequence
	g.mu.Unlock()

	random := strings.ReplaceAll(uuid.NewString(), "-", "")

	var b strings.Builder
	b.Grow(64)
	b.WriteString(strconv.FormatInt(g.now().UnixNano(), 10))
	b.WriteByte('-')
	b.WriteString(strconv.Itoa(g.pid))
	b.WriteByte('-')
	b.WriteString(strconv.FormatUint(seq, 10))
	b.WriteByte('-')
	b.WriteString(random[:16])
	return Token(b.String())
}

var defaultGenerator = NewGenerator()

// New returns a token from the package-level generator.
func New() Token {
	return defaultGenerator.Generate()
}
