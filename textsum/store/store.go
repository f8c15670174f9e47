package store

import "fmt"

// Open returns the store for backend: "file" stores artifacts under dir,
// "libsql" in the database at dsn.
func Open(backend, dir, dsn string, opts ...Option) (Store, error) {
	switch backend {
	case "", "file":
		return NewFileStore(dir, opts...), nil
	case "libsql":
		return OpenSQLStore(dsn, opts...)
	}
	return nil, fmt.Errorf("unsupported store backend %q", backend)
}
