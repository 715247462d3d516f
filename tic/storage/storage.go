package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/tichealth/tic-app/log"
	"github.com/tichealth/tic-app/tic/constants"
	"github.com/tichealth/tic-app/tic/models"
)

// ErrNotFound signals a missing customer or file on read. It is a lookup
// result, not a failure.
var ErrNotFound = errors.New("not found")

// Manifest persistence is retried this many times on top of the first
// attempt before the save fails.
const indexWriteRetries = 3

// FileStore persists generated MRF documents under per-customer directories
// and maintains the manifest. The index read-modify-write is serialized by a
// per-store mutex and both documents and the manifest are written to a temp
// file then renamed, so concurrent submissions cannot interleave on or
// corrupt the manifest.
type FileStore struct {
	mu   sync.Mutex
	root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

// Save writes the document as pretty-printed JSON under the customer's
// directory, then updates and persists the manifest with the new file record
// prepended so listings stay most-recent-first.
func (s *FileStore) Save(doc models.GeneratedMRF) (models.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.root, doc.CustomerKey)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return models.FileRecord{}, errors.Wrap(err, "failed to create customer directory")
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return models.FileRecord{}, errors.Wrap(err, "failed to marshal MRF document")
	}

	path := filepath.Join(dir, filepath.Base(doc.FileName))
	if err := writeFileAtomic(path, data); err != nil {
		return models.FileRecord{}, errors.Wrap(err, "failed to write MRF document")
	}

	info, err := os.Stat(path)
	if err != nil {
		return models.FileRecord{}, errors.Wrap(err, "failed to stat MRF document")
	}

	record := models.FileRecord{
		CustomerID:   doc.CustomerID,
		CustomerKey:  doc.CustomerKey,
		CustomerName: doc.CustomerName,
		FileName:     filepath.Base(doc.FileName),
		CreatedAt:    time.Now().UTC(),
		ClaimCount:   doc.ClaimCount,
		Size:         info.Size(),
	}

	index, err := s.loadIndex()
	if err != nil {
		return models.FileRecord{}, err
	}

	customer, ok := index[doc.CustomerID]
	if !ok {
		customer = &models.CustomerRecord{ID: doc.CustomerID}
		index[doc.CustomerID] = customer
	}
	// Refresh the display name and slug; they can drift between uploads.
	customer.Key = doc.CustomerKey
	customer.Name = doc.CustomerName
	customer.Files = append([]models.FileRecord{record}, customer.Files...)

	if err := s.persistIndex(index); err != nil {
		return models.FileRecord{}, err
	}

	log.Storage.WithField("file", record.FileName).Infof("saved MRF document for customer %s", doc.CustomerID)
	return record, nil
}

// List returns all customer records, or the single matching record when a
// customer id is given. An unknown id yields an empty list, not an error.
func (s *FileStore) List(customerID string) ([]models.CustomerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}

	if customerID != "" {
		if customer, ok := index[customerID]; ok {
			return []models.CustomerRecord{*customer}, nil
		}
		return []models.CustomerRecord{}, nil
	}

	result := make([]models.CustomerRecord, 0, len(index))
	for _, customer := range index {
		result = append(result, *customer)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ReadFile returns the raw bytes of a previously written document. The file
// name is reduced to its base name so a crafted path cannot escape the
// customer's own directory.
func (s *FileStore) ReadFile(customerID, fileName string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}

	customer, ok := index[customerID]
	if !ok {
		return nil, ErrNotFound
	}

	path := filepath.Join(s.root, customer.Key, filepath.Base(fileName))
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, ErrNotFound
	}
	return data, nil
}

func (s *FileStore) indexPath() string {
	return filepath.Join(s.root, constants.IndexFileName)
}

func (s *FileStore) loadIndex() (models.Index, error) {
	data, err := os.ReadFile(s.indexPath())
	if os.IsNotExist(err) {
		return models.Index{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read MRF index")
	}

	var index models.Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, errors.Wrap(err, "failed to parse MRF index")
	}
	return index, nil
}

func (s *FileStore) persistIndex(index models.Index) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal MRF index")
	}

	// Disk hiccups on the manifest are worth a couple of retries; the
	// document itself is already safely in place.
	op := func() error { return writeFileAtomic(s.indexPath(), data) }
	if err := backoff.Retry(op, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), indexWriteRetries)); err != nil {
		return errors.Wrap(err, "failed to write MRF index")
	}
	return nil
}

// writeFileAtomic writes to a temp file in the target directory and renames
// it into place, so readers never observe a partial write.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), path)
}
