package domain

import "path/filepath"

// MarkerFileName is the per-repository configuration file that marks a
// directory as a repository root.
const MarkerFileName = ".snapchain.yml"

type EngineName string

const (
	EngineBorg  EngineName = "borg"
	EngineRsync EngineName = "rsync"
)

// Repository is a backup destination bound to one source directory through
// its marker file. All paths are absolute.
type Repository struct {
	Root      string
	SourceDir string
	Storage   string
	Engine    EngineName
	Excludes  []string
	Schedule  string

	// MostRecent mirrors the engine's "most recent" marker. Only the chain
	// coordinator updates it, after a transfer has completed.
	MostRecent string
}

func (r *Repository) MarkerPath() string {
	return filepath.Join(r.Root, MarkerFileName)
}

func (r *Repository) String() string {
	return r.Root
}
