package conventions

import "path/filepath"

const (
	// DefaultDataDir is the default execgate data directory name (relative to home).
	DefaultDataDir = ".execgate"
	// DBFile is the SQLite database filename.
	DBFile = "execgate.db"
	// BlobsDir is the subdirectory of the directory blob store.
	BlobsDir = "blobs"
	// WorkDirName is the name of the command execution working directory created under the OS temp dir.
	WorkDirName = "execgate-work"

	// EnvVarPrefix is the prefix of the environment variables that set flags.
	EnvVarPrefix = "EXECGATE"
)

// DBPath returns the SQLite database path in a data directory.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, DBFile)
}

// BlobsPath returns the blob store root in a data directory.
func BlobsPath(dataDir string) string {
	return filepath.Join(dataDir, BlobsDir)
}
