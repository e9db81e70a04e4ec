// Package storage persists measurement samples. The firmware appended CSV
// lines to files on an SD card; here the named logs live as buckets in a
// single bbolt file, keyed by insertion sequence, and Export reproduces the
// firmware's millis;temp;pressure line format byte for byte.
package storage

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

const bucketLogs = "logs"

// Sample is one measurement: milliseconds since logging started plus the
// temperature and normalized pressure readings.
type Sample struct {
	Millis   int64
	Temp     float64
	Pressure float64
}

// Record formats the sample as the firmware's CSV line.
func (s Sample) Record() string {
	return fmt.Sprintf("%d;%.3f;%.3f", s.Millis, s.Temp, s.Pressure)
}

// ParseRecord is the inverse of Record.
func ParseRecord(line string) (Sample, error) {
	parts := strings.Split(strings.TrimSpace(line), ";")
	if len(parts) != 3 {
		return Sample{}, fmt.Errorf("storage: malformed record %q", line)
	}
	millis, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Sample{}, fmt.Errorf("storage: bad millis in %q: %w", line, err)
	}
	temp, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return Sample{}, fmt.Errorf("storage: bad temperature in %q: %w", line, err)
	}
	pressure, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return Sample{}, fmt.Errorf("storage: bad pressure in %q: %w", line, err)
	}
	return Sample{Millis: millis, Temp: temp, Pressure: pressure}, nil
}

// LogInfo describes one named log.
type LogInfo struct {
	Name    string
	Records int
}

// Store is the sample database. A single Store may be shared by the gauge
// loop and command handlers because they run on the same goroutine; bbolt
// handles locking against other processes.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the store file.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketLogs))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: init %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Append adds a sample to the named log, creating the log if needed.
func (s *Store) Append(logName string, sample Sample) error {
	if logName == "" {
		return fmt.Errorf("storage: log name must not be empty")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket([]byte(bucketLogs)).CreateBucketIfNotExists([]byte(logName))
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(marshalSeq(seq), []byte(sample.Record()))
	})
}

// Samples returns the named log's samples in insertion order.
func (s *Store) Samples(logName string) ([]Sample, error) {
	var samples []Sample
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketLogs)).Bucket([]byte(logName))
		if b == nil {
			return fmt.Errorf("storage: no such log %q", logName)
		}
		return b.ForEach(func(k, v []byte) error {
			sample, err := ParseRecord(string(v))
			if err != nil {
				return err
			}
			samples = append(samples, sample)
			return nil
		})
	})
	return samples, err
}

// Export writes the named log as CSV lines, one record per line.
func (s *Store) Export(logName string, w io.Writer) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketLogs)).Bucket([]byte(logName))
		if b == nil {
			return fmt.Errorf("storage: no such log %q", logName)
		}
		return b.ForEach(func(k, v []byte) error {
			_, err := fmt.Fprintf(w, "%s\r\n", v)
			return err
		})
	})
}

// List enumerates the logs and their record counts.
func (s *Store) List() ([]LogInfo, error) {
	var infos []LogInfo
	err := s.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket([]byte(bucketLogs))
		return root.ForEachBucket(func(name []byte) error {
			b := root.Bucket(name)
			count := 0
			_ = b.ForEach(func(k, v []byte) error {
				count++
				return nil
			})
			infos = append(infos, LogInfo{Name: string(name), Records: count})
			return nil
		})
	})
	return infos, err
}

// SelfTest is the storage equivalent of the firmware's SD card check: write
// a handful of records to a scratch bucket, read them back, then drop the
// bucket.
func (s *Store) SelfTest() error {
	const scratch = "sdcheck"
	err := s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(scratch)) != nil {
			if err := tx.DeleteBucket([]byte(scratch)); err != nil {
				return err
			}
		}
		b, err := tx.CreateBucket([]byte(scratch))
		if err != nil {
			return err
		}
		for i := uint64(1); i <= 5; i++ {
			if err := b.Put(marshalSeq(i), []byte(fmt.Sprintf("check %d", i))); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("storage: self-test write: %w", err)
	}

	err = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(scratch))
		for i := uint64(1); i <= 5; i++ {
			want := fmt.Sprintf("check %d", i)
			if got := string(b.Get(marshalSeq(i))); got != want {
				return fmt.Errorf("read back %q, want %q", got, want)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("storage: self-test read: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.DeleteBucket([]byte(scratch))
	})
	if err != nil {
		return fmt.Errorf("storage: self-test cleanup: %w", err)
	}
	return nil
}

func marshalSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}
