package constants

import "os"

const (
	// SessionFilePermissions sets the permissions for captured session files: (rw-------).
	// Owner: read and write;
	// Group: none;
	// Others: none.
	// Session files hold live cookies, so nobody but the owner may read them.
	SessionFilePermissions os.FileMode = 0o600

	// DefaultFilePermissions sets the default permissions for regular files: (rw-r--r--).
	// Owner: read and write;
	// Group: read;
	// Others: read.
	DefaultFilePermissions os.FileMode = 0o644

	// DefaultFolderPermissions sets the default permissions for regular folders: (rwxr-xr-x).
	// Owner: read, write, and execute;
	// Group: read and execute;
	// Others: read and execute.
	DefaultFolderPermissions os.FileMode = 0o755
)

// File name constants.
const (
	DefaultConfigFilename  = "config.json"
	DefaultSessionFilename = "session.json"
	ExtensionTemp          = ".tmp"
)
