package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/autofragment/pkg/errors"
	"github.com/turtacn/autofragment/pkg/types/molecule"
)

func sampleResult() *molecule.DecompositionResult {
	r := molecule.NewDecompositionResult(1)
	r.RunID = "run-1"
	r.Fragments["ethanol"] = molecule.FragmentCountMap{"CC": 1, "CCO": 1, "CO": 1}
	r.Fragments["water"] = molecule.FragmentCountMap{"O": 1}
	r.FailedIDs = []string{"bad"}
	r.Failures = []molecule.Failure{{ID: "bad", Code: "FRAG_001", Reason: "unknown element"}}
	return r
}

func TestCompressionForPath(t *testing.T) {
	cases := map[string]Compression{
		"out.json":      CompressionNone,
		"out.json.gz":   CompressionGzip,
		"OUT.JSON.GZ":   CompressionGzip,
		"out.json.zst":  CompressionZstd,
		"out.json.zstd": CompressionZstd,
		"out":           CompressionNone,
	}
	for path, want := range cases {
		assert.Equal(t, want, CompressionForPath(path), path)
	}
}

func TestParseCompression(t *testing.T) {
	for in, want := range map[string]Compression{"": CompressionNone, "none": CompressionNone, "gz": CompressionGzip, "GZIP": CompressionGzip, "zst": CompressionZstd, "zstd": CompressionZstd} {
		got, err := ParseCompression(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseCompression("lz4")
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestEncodeDecode_AllCompressions(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionGzip, CompressionZstd} {
		t.Run(c.String(), func(t *testing.T) {
			data, err := Marshal(sampleResult(), c)
			require.NoError(t, err)

			got, err := Unmarshal(data, c)
			require.NoError(t, err)
			assert.Equal(t, sampleResult(), got)
		})
	}
}

func TestEncode_CompressedIsSmallerForRepetitiveData(t *testing.T) {
	r := molecule.NewDecompositionResult(2)
	for i := 0; i < 200; i++ {
		r.Fragments[string(rune('a'+i%26))+string(rune('a'+i/26))] = molecule.FragmentCountMap{"ccc": 6}
	}
	plain, err := Marshal(r, CompressionNone)
	require.NoError(t, err)
	zst, err := Marshal(r, CompressionZstd)
	require.NoError(t, err)
	assert.Less(t, len(zst), len(plain))
}

func TestEncode_NilResult(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Encode(&buf, nil, CompressionNone))
}

func TestDecode_Garbage(t *testing.T) {
	_, err := Unmarshal([]byte("not json"), CompressionNone)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))

	_, err = Unmarshal([]byte("not gzip"), CompressionGzip)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))
}

func TestDecode_FillsEmptyCollections(t *testing.T) {
	got, err := Unmarshal([]byte(`{"radius":1}`), CompressionNone)
	require.NoError(t, err)
	assert.NotNil(t, got.Fragments)
	assert.NotNil(t, got.FailedIDs)
}

func TestWriteReadFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"r.json", "r.json.gz", "r.json.zst"} {
		path := filepath.Join(dir, name)
		require.NoError(t, WriteFile(path, sampleResult()))

		got, err := ReadFile(path)
		require.NoError(t, err, name)
		assert.Equal(t, sampleResult(), got, name)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "r.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"failed_ids"`)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}

func TestWriteFile_BadDirectory(t *testing.T) {
	err := WriteFile(filepath.Join(t.TempDir(), "no", "such", "dir.json"), sampleResult())
	assert.Error(t, err)
}

//Personal.AI order the ending
