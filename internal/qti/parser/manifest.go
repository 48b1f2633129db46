// Package parser reads QTI 2.x content packages from a zip archive.
package parser

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

var ErrNoManifest = errors.New("imsmanifest.xml not found")

const maxMemberSize = 8 << 20

type Manifest struct {
	Resources []ManifestResource
}

type ManifestResource struct {
	Identifier string
	Href       string
	Type       string
	Files      []string
}

type imsManifest struct {
	XMLName   xml.Name      `xml:"manifest"`
	Resources []imsResource `xml:"resources>resource"`
}

type imsResource struct {
	Identifier string    `xml:"identifier,attr"`
	Href       string    `xml:"href,attr"`
	Type       string    `xml:"type,attr"`
	Files      []imsFile `xml:"file"`
}

type imsFile struct {
	Href string `xml:"href,attr"`
}

// IsPackage reports whether the archive carries a QTI manifest.
func IsPackage(zr *zip.Reader) bool {
	return findManifest(zr) != nil
}

// ReadPackage parses the manifest and every item it references, in manifest
// order.
func ReadPackage(zr *zip.Reader) (Manifest, []ParsedItem, error) {
	mf := findManifest(zr)
	if mf == nil {
		return Manifest{}, nil, ErrNoManifest
	}
	b, err := readMember(mf)
	if err != nil {
		return Manifest{}, nil, err
	}
	var raw imsManifest
	if err := xml.Unmarshal(b, &raw); err != nil {
		return Manifest{}, nil, fmt.Errorf("manifest: %w", err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[path.Clean(f.Name)] = f
	}
	base := path.Dir(mf.Name)

	var (
		out   Manifest
		items []ParsedItem
	)
	for _, r := range raw.Resources {
		res := ManifestResource{Identifier: r.Identifier, Href: r.Href, Type: r.Type}
		for _, f := range r.Files {
			res.Files = append(res.Files, f.Href)
		}
		out.Resources = append(out.Resources, res)

		href := strings.ToLower(r.Href)
		if !strings.HasSuffix(href, ".xml") || strings.Contains(href, "manifest") {
			continue
		}
		f, ok := files[path.Join(base, r.Href)]
		if !ok {
			return Manifest{}, nil, fmt.Errorf("item %s: missing from package", r.Href)
		}
		b, err := readMember(f)
		if err != nil {
			return Manifest{}, nil, err
		}
		it, err := ParseItem(b)
		if err != nil {
			return Manifest{}, nil, fmt.Errorf("item %s: %w", r.Href, err)
		}
		items = append(items, it)
	}
	return out, items, nil
}

func findManifest(zr *zip.Reader) *zip.File {
	for _, name := range []string{"imsmanifest.xml", "manifest.xml"} {
		for _, f := range zr.File {
			if strings.EqualFold(path.Base(f.Name), name) {
				return f
			}
		}
	}
	return nil
}

func readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	b, err := io.ReadAll(io.LimitReader(rc, maxMemberSize+1))
	if err != nil {
		return nil, err
	}
	if len(b) > maxMemberSize {
		return nil, fmt.Errorf("%s: member too large", f.Name)
	}
	return b, nil
}
