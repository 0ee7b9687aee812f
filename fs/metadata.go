package fs

type Type uint8

const (
	Type_Invalid Type = iota
	Type_File
	Type_Dir
	Type_Symlink
	Type_Other // pipes, sockets, devices: nothing we ever expect to find in a repository
)

func (t Type) String() string {
	switch t {
	case Type_File:
		return "file"
	case Type_Dir:
		return "dir"
	case Type_Symlink:
		return "symlink"
	case Type_Other:
		return "other"
	default:
		return "invalid"
	}
}

type Metadata struct {
	Name AbsolutePath // the path that was inspected
	Type Type
	Uid  uint32 // user id of owner
	Gid  uint32 // group id of owner
	Dev  uint64 // id of the device holding this file; compared only for equality
	Size int64  // length in bytes (files only)
}
