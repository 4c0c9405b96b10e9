package ubl

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Files inside result archives are small; cap extraction anyway since the
// archive arrives from the network.
const maxExtractedFile = 16 << 20 // 16 MB

// ExtractXML pulls the invoice XML out of a result archive. The gateway names
// the document after the upload index ("{uploadID}.xml"); when that entry is
// missing the first XML that is not the detached signature is used.
func ExtractXML(archive []byte, uploadID string) ([]byte, error) {
	r, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("ubl: open archive: %w", err)
	}

	want := uploadID + ".xml"
	var fallback *zip.File
	for _, f := range r.File {
		name := strings.ToLower(f.Name)
		if uploadID != "" && name == strings.ToLower(want) {
			return readEntry(f)
		}
		if strings.HasSuffix(name, ".xml") && !strings.HasPrefix(name, "semnatura_") && fallback == nil {
			fallback = f
		}
	}
	if fallback != nil {
		return readEntry(fallback)
	}
	return nil, fmt.Errorf("ubl: no invoice XML in archive (%d entries)", len(r.File))
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("ubl: open %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxExtractedFile))
	if err != nil {
		return nil, fmt.Errorf("ubl: read %s: %w", f.Name, err)
	}
	return data, nil
}
