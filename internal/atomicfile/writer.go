package atomicfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	defaultDirectoryPermissionsConstant     = fs.FileMode(0o755)
	defaultFilePermissionsConstant          = fs.FileMode(0o644)
	temporaryFilePatternTemplateConstant    = ".%s.tmp-*"
	jsonIndentPrefixConstant                = ""
	jsonIndentValueConstant                 = "  "
	jsonTrailingNewlineConstant             = '\n'
	writeFailedMessageConstant              = "atomic write failed"
	createDirectoryErrorTemplateConstant    = "%w: unable to create directory %s: %w"
	createTemporaryErrorTemplateConstant    = "%w: unable to create temporary file in %s: %w"
	writeTemporaryErrorTemplateConstant     = "%w: unable to write temporary file %s: %w"
	syncTemporaryErrorTemplateConstant      = "%w: unable to sync temporary file %s: %w"
	closeTemporaryErrorTemplateConstant     = "%w: unable to close temporary file %s: %w"
	chmodTemporaryErrorTemplateConstant     = "%w: unable to set permissions on %s: %w"
	renameTemporaryErrorTemplateConstant    = "%w: unable to rename %s to %s: %w"
	encodeDocumentErrorTemplateConstant     = "%w: unable to encode document for %s: %w"
	targetPathRequiredErrorTemplateConstant = "%w: target path must be provided"
)

// ErrWriteFailed marks every failure reported by Writer.
var ErrWriteFailed = errors.New(writeFailedMessageConstant)

// Writer performs crash-safe write-replace operations.
type Writer struct {
	directoryPermissions fs.FileMode
	filePermissions      fs.FileMode
}

// NewWriter constructs a Writer with default permissions.
func NewWriter() *Writer {
	return &Writer{
		directoryPermissions: defaultDirectoryPermissionsConstant,
		filePermissions:      defaultFilePermissionsConstant,
	}
}

// WriteJSON encodes the document with two-space indentation and replaces the target atomically.
func (writer *Writer) WriteJSON(targetPath string, document any) error {
	encodedDocument, encodeError := json.MarshalIndent(document, jsonIndentPrefixConstant, jsonIndentValueConstant)
	if encodeError != nil {
		return fmt.Errorf(encodeDocumentErrorTemplateConstant, ErrWriteFailed, targetPath, encodeError)
	}
	encodedDocument = append(encodedDocument, jsonTrailingNewlineConstant)
	return writer.WriteFile(targetPath, encodedDocument)
}

// WriteFile replaces the target with content. The parent directory is created when absent.
func (writer *Writer) WriteFile(targetPath string, content []byte) error {
	if len(targetPath) == 0 {
		return fmt.Errorf(targetPathRequiredErrorTemplateConstant, ErrWriteFailed)
	}

	directoryPath := filepath.Dir(targetPath)
	if mkdirError := os.MkdirAll(directoryPath, writer.resolveDirectoryPermissions()); mkdirError != nil {
		return fmt.Errorf(createDirectoryErrorTemplateConstant, ErrWriteFailed, directoryPath, mkdirError)
	}

	temporaryFile, createError := os.CreateTemp(directoryPath, fmt.Sprintf(temporaryFilePatternTemplateConstant, filepath.Base(targetPath)))
	if createError != nil {
		return fmt.Errorf(createTemporaryErrorTemplateConstant, ErrWriteFailed, directoryPath, createError)
	}
	temporaryPath := temporaryFile.Name()

	replaced := false
	defer func() {
		if !replaced {
			_ = os.Remove(temporaryPath)
		}
	}()

	if _, writeError := temporaryFile.Write(content); writeError != nil {
		_ = temporaryFile.Close()
		return fmt.Errorf(writeTemporaryErrorTemplateConstant, ErrWriteFailed, temporaryPath, writeError)
	}

	if syncError := temporaryFile.Sync(); syncError != nil {
		_ = temporaryFile.Close()
		return fmt.Errorf(syncTemporaryErrorTemplateConstant, ErrWriteFailed, temporaryPath, syncError)
	}

	if closeError := temporaryFile.Close(); closeError != nil {
		return fmt.Errorf(closeTemporaryErrorTemplateConstant, ErrWriteFailed, temporaryPath, closeError)
	}

	if chmodError := os.Chmod(temporaryPath, writer.resolveFilePermissions()); chmodError != nil {
		return fmt.Errorf(chmodTemporaryErrorTemplateConstant, ErrWriteFailed, temporaryPath, chmodError)
	}

	if renameError := os.Rename(temporaryPath, targetPath); renameError != nil {
		return fmt.Errorf(renameTemporaryErrorTemplateConstant, ErrWriteFailed, temporaryPath, targetPath, renameError)
	}
	replaced = true

	syncDirectory(directoryPath)
	return nil
}

func (writer *Writer) resolveDirectoryPermissions() fs.FileMode {
	if writer == nil || writer.directoryPermissions == 0 {
		return defaultDirectoryPermissionsConstant
	}
	return writer.directoryPermissions
}

func (writer *Writer) resolveFilePermissions() fs.FileMode {
	if writer == nil || writer.filePermissions == 0 {
		return defaultFilePermissionsConstant
	}
	return writer.filePermissions
}

// syncDirectory persists the rename itself. Platforms that cannot open directories are ignored.
func syncDirectory(directoryPath string) {
	directory, openError := os.Open(directoryPath)
	if openError != nil {
		return
	}
	_ = directory.Sync()
	_ = directory.Close()
}
