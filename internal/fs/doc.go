// Package fs provides filesystem abstractions for testability and fault injection.
//
// The package defines two key interfaces:
//
//   - [File]: an open backing file with read/write/sync/truncate and a
//     descriptor that can be memory mapped
//   - [FileSystem]: filesystem operations (open, remove, rename, stat)
//
// # Implementations
//
//   - [LocalFS]: production implementation using the os package
//   - [FaultyFS]: test utility that injects write, sync, truncate and close
//     failures per file name pattern
//
// Production code uses fs.Default. Tests inject a FaultyFS to exercise the
// failure paths of flush and growth:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".bloom", fs.Fault{FailOnSync: true})
//
// Operations carry no context.Context: local file operations are not
// interruptible at the syscall level.
package fs
