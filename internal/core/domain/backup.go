package domain

type BackupType string

const (
	BackupTypeFull        BackupType = "full"
	BackupTypeIncremental BackupType = "incremental"
)

// BackupFlags are propagated unchanged along the whole backup chain.
type BackupFlags struct {
	DryRun    bool
	ForceFull bool
}

// ChainLink describes the backup taken for one repository of a chain.
type ChainLink struct {
	Repository  string
	ArchiveID   string
	Type        BackupType
	FromArchive *string // For incremental backups
	DryRun      bool
}

func NewChainLink(repo *Repository, archiveID string, fromArchive string, dryRun bool) *ChainLink {
	link := &ChainLink{
		Repository: repo.Root,
		ArchiveID:  archiveID,
		Type:       BackupTypeFull,
		DryRun:     dryRun,
	}
	if fromArchive != "" {
		link.Type = BackupTypeIncremental
		link.FromArchive = &fromArchive
	}
	return link
}
