package testutil

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/src-d/go-billy.v4"
	"gopkg.in/src-d/go-billy.v4/util"
	"gopkg.in/src-d/go-git.v4/plumbing"
	"gopkg.in/src-d/go-git.v4/plumbing/format/idxfile"
	"gopkg.in/src-d/go-git.v4/plumbing/format/objfile"
	"gopkg.in/src-d/go-git.v4/plumbing/format/packfile"
	"gopkg.in/src-d/go-git.v4/storage/memory"

	"go.polydawn.net/scry/fs"
)

// A raw object to be placed into a fixture store.
type RawObject struct {
	Kind plumbing.ObjectType
	Data []byte
}

func Blob(s string) RawObject {
	return RawObject{plumbing.BlobObject, []byte(s)}
}

func (o RawObject) Hash() plumbing.Hash {
	return plumbing.ComputeHash(o.Kind, o.Data)
}

/*
	Lay down the bare minimum that makes a directory a git dir:
	a HEAD file, and `objects/` and `refs/` directories.

	Returns the objects dir.
*/
func MakeGitDir(gitDir fs.AbsolutePath) fs.AbsolutePath {
	Mkdirs(gitDir.Join(fs.MustRelPath("objects/info")))
	Mkdirs(gitDir.Join(fs.MustRelPath("objects/pack")))
	Mkdirs(gitDir.Join(fs.MustRelPath("refs/heads")))
	if err := os.WriteFile(gitDir.Join(fs.MustRelPath("HEAD")).String(), []byte("ref: refs/heads/master\n"), 0644); err != nil {
		panic(err)
	}
	return gitDir.Join(fs.MustRelPath("objects"))
}

// Make workDir a work tree, with its git dir at `workDir/.git`.  Returns the objects dir.
func MakeWorkTree(workDir fs.AbsolutePath) fs.AbsolutePath {
	return MakeGitDir(workDir.Join(fs.MustRelPath(".git")))
}

/*
	Write a loose object (zlib, "<kind> <size>\0" header) in the usual
	`xx/xxxxxx...` layout under an objects dir filesystem.
*/
func WriteLooseObject(objects billy.Filesystem, obj RawObject) plumbing.Hash {
	hash, body := encodeLoose(obj)
	writeLooseFile(objects, hash, body)
	return hash
}

/*
	Write a loose object under the id of some *other* object.

	Stores never disagree about an id's content in real life; tests use
	this to see which of two stores actually answered.
*/
func WriteLooseObjectAs(objects billy.Filesystem, id plumbing.Hash, obj RawObject) {
	_, body := encodeLoose(obj)
	writeLooseFile(objects, id, body)
}

func encodeLoose(obj RawObject) (plumbing.Hash, []byte) {
	var buf bytes.Buffer
	w := objfile.NewWriter(&buf)
	if err := w.WriteHeader(obj.Kind, int64(len(obj.Data))); err != nil {
		panic(err)
	}
	if _, err := w.Write(obj.Data); err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return w.Hash(), buf.Bytes()
}

func writeLooseFile(objects billy.Filesystem, id plumbing.Hash, body []byte) {
	hex := id.String()
	if err := util.WriteFile(objects, objects.Join(hex[:2], hex[2:]), body, 0644); err != nil {
		panic(err)
	}
}

/*
	Write a packfile and its index under `pack/` in an objects dir filesystem.

	The encoder is allowed to deltify, so packs built from similar
	objects will exercise delta resolution.  Returns the pack's checksum,
	which also names the files.
*/
func WritePack(objects billy.Filesystem, objs ...RawObject) plumbing.Hash {
	staging := memory.NewStorage()
	hashes := make([]plumbing.Hash, 0, len(objs))
	for _, obj := range objs {
		eo := staging.NewEncodedObject()
		eo.SetType(obj.Kind)
		eo.SetSize(int64(len(obj.Data)))
		w, err := eo.Writer()
		if err != nil {
			panic(err)
		}
		if _, err := w.Write(obj.Data); err != nil {
			panic(err)
		}
		w.Close()
		hash, err := staging.SetEncodedObject(eo)
		if err != nil {
			panic(err)
		}
		hashes = append(hashes, hash)
	}

	var packBuf bytes.Buffer
	checksum, err := packfile.NewEncoder(&packBuf, staging, false).Encode(hashes, 10)
	if err != nil {
		panic(err)
	}

	idxWriter := new(idxfile.Writer)
	parser, err := packfile.NewParser(packfile.NewScanner(bytes.NewReader(packBuf.Bytes())), idxWriter)
	if err != nil {
		panic(err)
	}
	if _, err := parser.Parse(); err != nil {
		panic(err)
	}
	idx, err := idxWriter.Index()
	if err != nil {
		panic(err)
	}
	var idxBuf bytes.Buffer
	if _, err := idxfile.NewEncoder(&idxBuf).Encode(idx); err != nil {
		panic(err)
	}

	base := objects.Join("pack", fmt.Sprintf("pack-%s", checksum))
	if err := util.WriteFile(objects, base+".pack", packBuf.Bytes(), 0644); err != nil {
		panic(err)
	}
	if err := util.WriteFile(objects, base+".idx", idxBuf.Bytes(), 0644); err != nil {
		panic(err)
	}
	return checksum
}

// Write the `info/alternates` file of an objects dir, one path per line.
func WriteAlternates(objects fs.AbsolutePath, lines ...string) {
	Mkdirs(objects.Join(fs.MustRelPath("info")))
	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if err := os.WriteFile(objects.Join(fs.MustRelPath("info/alternates")).String(), buf.Bytes(), 0644); err != nil {
		panic(err)
	}
}
