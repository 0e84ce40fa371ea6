package vectorstore

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/renameio"

	"github.com/clearpath/clearpath/errs"
)

// index.faiss framing: magic, version, dimension, vector count, then
// count*dim float32 values little-endian, row-major.
var indexMagic = [4]byte{'C', 'P', 'I', 'P'}

const indexVersion uint32 = 1

func writeIndexFile(path string, vectors [][]float32, dimension int) error {
	var buf bytes.Buffer
	buf.Write(indexMagic[:])
	binary.Write(&buf, binary.LittleEndian, indexVersion)
	binary.Write(&buf, binary.LittleEndian, uint32(dimension))
	binary.Write(&buf, binary.LittleEndian, uint64(len(vectors)))
	for _, vec := range vectors {
		if err := binary.Write(&buf, binary.LittleEndian, vec); err != nil {
			return errs.Internal("encode index", err)
		}
	}
	if err := renameio.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errs.Internal("write index file", err)
	}
	return nil
}

func readIndexFile(path string) ([][]float32, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, errs.Internal("read index file", err)
	}
	r := bytes.NewReader(data)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil || magic != indexMagic {
		return nil, 0, errs.Internal("read index file", fmt.Errorf("bad magic in %s", path))
	}
	var version, dim uint32
	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, 0, errs.Internal("read index file", err)
	}
	if version != indexVersion {
		return nil, 0, errs.Internal("read index file", fmt.Errorf("unsupported index version %d", version))
	}
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, 0, errs.Internal("read index file", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, 0, errs.Internal("read index file", err)
	}

	vectors := make([][]float32, count)
	for i := range vectors {
		vec := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, vec); err != nil {
			return nil, 0, errs.Internal("read index file", fmt.Errorf("truncated vector %d: %w", i, err))
		}
		vectors[i] = vec
	}
	return vectors, int(dim), nil
}

func writeSidecarFile(path string, metadata []ChunkRecord) error {
	// Keep an explicit empty array so an empty store round-trips.
	if metadata == nil {
		metadata = []ChunkRecord{}
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return errs.Internal("encode sidecar", err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return errs.Internal("write sidecar file", err)
	}
	return nil
}

func readSidecarFile(path string) ([]ChunkRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Internal("read sidecar file", err)
	}
	var metadata []ChunkRecord
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, errs.Internal("parse sidecar file", err)
	}
	return metadata, nil
}
