package utils

import (
	"fmt"
	"strings"
)

const collectionPrefix = "Collections"

func replaceExt(fileName, ext string) string {
	if strings.HasSuffix(fileName, ext) {
		return fileName
	}
	if idx := strings.Index(fileName, "."); idx >= 0 {
		fileName = fileName[:idx]
	}
	return fileName + ext
}

// BuildMarkdownPath builds the blob key for a document's markdown body.
func BuildMarkdownPath(collectionID, fileName string, leaseID *string) (string, error) {
	if leaseID == nil {
		return "", fmt.Errorf("lease ID must be provided for collection documents")
	}
	return fmt.Sprintf("%s/%s/%s/%s", collectionPrefix, collectionID, *leaseID, replaceExt(fileName, ".md")), nil
}

// BuildPDFPath builds the blob key for a document's original PDF.
func BuildPDFPath(collectionID, fileName string, leaseID *string) (string, error) {
	if leaseID == nil {
		return "", fmt.Errorf("lease ID must be provided for collection documents")
	}
	return fmt.Sprintf("%s/%s/%s/%s", collectionPrefix, collectionID, *leaseID, replaceExt(fileName, ".pdf")), nil
}
