package smr

import "github.com/solotzg/go-lockfree/internal/engine"

// Engine is the SMR engine. Construct with New; it must not be moved
// after the first call to any of its methods.
type Engine = engine.Engine

// Handle is the opaque token returned by Acquire and consumed by Release.
type Handle = engine.Handle

// RetiredNode is the per-retired-object bookkeeping header a Retirable
// node type must embed.
type RetiredNode = engine.RetiredNode

// Retirable is implemented by node types the engine can retire: a type
// that can hand back the RetiredNode header it embeds.
type Retirable = engine.Retirable

// Destroyer is implemented by Retirable node types needing cleanup beyond
// garbage collection when the engine reclaims them.
type Destroyer = engine.Destroyer

// Config configures an Engine. See DefaultConfig for defaults.
type Config = engine.Config

// Logger receives diagnostics for conditions the engine logs and ignores
// rather than returning as an error.
type Logger = engine.Logger

// NoOpLogger discards everything; it is the default Logger.
type NoOpLogger = engine.NoOpLogger

// DefaultConfig returns a Config with the engine's default tunables:
// MaxThreads 16, PerThreadThreshold 64, MinVersionCacheTTL 200µs.
func DefaultConfig() Config {
	return engine.DefaultConfig()
}

// DefaultPerThreadThreshold and DefaultMinVersionCacheTTL re-export the
// defaults DefaultConfig uses, for callers (like HotConfig) that need to
// seed a value before the first file read.
const (
	DefaultPerThreadThreshold = engine.DefaultPerThreadThreshold
	DefaultMinVersionCacheTTL = engine.DefaultMinVersionCacheTTL
)

// New constructs an Engine. The engine's copy of cfg is normalized via
// Config.Validate; the caller's cfg is not modified.
func New(cfg Config) *Engine {
	return engine.New(cfg)
}

// Retire hands node to e for deferred destruction. The engine guarantees
// node's destructor runs exactly once, no earlier than the point at which
// every acquisition active when Retire was called has released.
func Retire[T Retirable](e *Engine, node T) Status {
	return engine.Retire(e, node)
}
