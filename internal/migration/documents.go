package migration

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	documentMissingTemplateConstant    = "%w: %s"
	documentReadTemplateConstant       = "%w: unable to read %s: %w"
	documentWriteTemplateConstant      = "%w: %w"
	documentShapeArrayMessageConstant  = "expected an array or an object"
	documentShapeObjectMessageConstant = "expected an object"
	itemShapeTemplateConstant          = "item %d: expected an object"
	itemIdentifierTemplateConstant     = "item %d: missing id"
	itemDecodeTemplateConstant         = "item %d: %w"
	wrappedCollectionTemplateConstant  = "%s: %w"
	jsonArrayOpeningConstant           = '['
	jsonObjectOpeningConstant          = '{'
)

// DocumentWriter persists documents with write-replace semantics.
type DocumentWriter interface {
	WriteJSON(targetPath string, document any) error
	WriteFile(targetPath string, content []byte) error
}

func readDocument(documentPath string) ([]byte, error) {
	content, readError := os.ReadFile(documentPath)
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			return nil, fmt.Errorf(documentMissingTemplateConstant, ErrNotFound, documentPath)
		}
		return nil, fmt.Errorf(documentReadTemplateConstant, ErrIOFailure, documentPath, readError)
	}
	return content, nil
}

func writeDocument(writer DocumentWriter, documentPath string, document any) error {
	if writeError := writer.WriteJSON(documentPath, document); writeError != nil {
		return fmt.Errorf(documentWriteTemplateConstant, ErrIOFailure, writeError)
	}
	return nil
}

func corruptDocument(documentPath string, cause error) error {
	return CorruptDocumentError{DocumentName: filepath.Base(documentPath), Cause: cause}
}

type collectionItem[Item any] interface {
	identifier() string
	normalized() Item
}

// decodeCollection accepts a bare array or an object wrapping the array under wrapperKey.
// An object without wrapperKey is an empty collection. Unknown item fields are ignored.
func decodeCollection[Item collectionItem[Item]](content []byte, wrapperKey string, newItem func() Item) ([]Item, error) {
	trimmedContent := bytes.TrimSpace(content)
	if len(trimmedContent) == 0 {
		return nil, errors.New(documentShapeArrayMessageConstant)
	}

	var rawItems []json.RawMessage
	switch trimmedContent[0] {
	case jsonArrayOpeningConstant:
		if decodeError := json.Unmarshal(trimmedContent, &rawItems); decodeError != nil {
			return nil, decodeError
		}
	case jsonObjectOpeningConstant:
		var wrapper map[string]json.RawMessage
		if decodeError := json.Unmarshal(trimmedContent, &wrapper); decodeError != nil {
			return nil, decodeError
		}
		wrappedItems, exists := wrapper[wrapperKey]
		if !exists {
			return []Item{}, nil
		}
		if decodeError := json.Unmarshal(wrappedItems, &rawItems); decodeError != nil {
			return nil, fmt.Errorf(wrappedCollectionTemplateConstant, wrapperKey, decodeError)
		}
	default:
		return nil, errors.New(documentShapeArrayMessageConstant)
	}

	return decodeItems(rawItems, newItem)
}

func decodeItems[Item collectionItem[Item]](rawItems []json.RawMessage, newItem func() Item) ([]Item, error) {
	items := make([]Item, 0, len(rawItems))
	for itemIndex, rawItem := range rawItems {
		trimmedItem := bytes.TrimSpace(rawItem)
		if len(trimmedItem) == 0 || trimmedItem[0] != jsonObjectOpeningConstant {
			return nil, fmt.Errorf(itemShapeTemplateConstant, itemIndex)
		}
		item := newItem()
		if decodeError := json.Unmarshal(trimmedItem, &item); decodeError != nil {
			return nil, fmt.Errorf(itemDecodeTemplateConstant, itemIndex, decodeError)
		}
		if len(item.identifier()) == 0 {
			return nil, fmt.Errorf(itemIdentifierTemplateConstant, itemIndex)
		}
		items = append(items, item.normalized())
	}
	return items, nil
}

func requireObject(content []byte) error {
	trimmedContent := bytes.TrimSpace(content)
	if len(trimmedContent) == 0 || trimmedContent[0] != jsonObjectOpeningConstant {
		return errors.New(documentShapeObjectMessageConstant)
	}
	return nil
}
