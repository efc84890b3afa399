package main

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/glogio/glog-reader/pkg/archive"
	"github.com/glogio/glog-reader/pkg/glog"
	"github.com/glogio/glog-reader/pkg/logproto"
	"github.com/glogio/glog-reader/pkg/logstore"
)

type options struct {
	input  string
	key    string
	types  string
	output string
	dbPath string
}

func run(opts *options) error {
	typeFilter, err := parseTypeFilter(opts.types)
	if err != nil {
		return err
	}

	files, cleanup, err := collectInputFiles(opts.input)
	if err != nil {
		return err
	}
	defer cleanup()

	if len(files) == 0 {
		return errors.New("no log files found in input")
	}
	log.Printf("Found %d log file(s)", len(files))

	out, err := os.Create(opts.output)
	if err != nil {
		return fmt.Errorf("create output file %s: %w", opts.output, err)
	}
	defer out.Close()
	writer := bufio.NewWriter(out)

	var store *logstore.Store
	if opts.dbPath != "" {
		store, err = logstore.Open(opts.dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	total := 0
	for _, file := range files {
		log.Printf("Processing %s", file)
		n, err := decodeFile(file, opts.key, typeFilter, writer, store)
		if err != nil {
			log.Printf("Failed to decode %s: %v", file, err)
			continue
		}
		log.Printf("Decoded %d record(s) from %s", n, file)
		total += n
	}

	if err := writer.Flush(); err != nil {
		return err
	}
	log.Printf("Wrote %d record(s) to %s", total, opts.output)
	return nil
}

// collectInputFiles resolves the input into the ordered list of
// container files to decode. ZIP bundles are unpacked into a temp dir
// that the returned cleanup removes; a bare file is used as-is.
func collectInputFiles(input string) ([]string, func(), error) {
	noop := func() {}

	if !strings.EqualFold(filepath.Ext(input), ".zip") {
		return []string{input}, noop, nil
	}

	tempDir, err := os.MkdirTemp("", "glog-reader-")
	if err != nil {
		return nil, noop, err
	}
	cleanup := func() { os.RemoveAll(tempDir) }

	if _, err := archive.ExtractZip(input, tempDir); err != nil {
		cleanup()
		return nil, noop, err
	}

	glogs, err := archive.CollectGlogFiles(tempDir)
	if err != nil {
		cleanup()
		return nil, noop, err
	}
	mmaps, err := archive.CollectMmapFiles(tempDir)
	if err != nil {
		cleanup()
		return nil, noop, err
	}

	return append(glogs, mmaps...), cleanup, nil
}

// decodeFile reads every record from one container, writes formatted
// text output and optionally indexes records into the store. Records
// whose payload does not decode as a log message are skipped, matching
// the producer's own tooling.
func decodeFile(path, key string, typeFilter map[int32]bool, writer *bufio.Writer, store *logstore.Store) (int, error) {
	reader, err := glog.OpenFileWithKey(path, key)
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	var records []logstore.Record
	count := 0
	buf := make([]byte, glog.SingleLogMaxLength)

	for {
		res, err := reader.Read(buf)
		if err != nil {
			return count, err
		}

		switch res.Status {
		case glog.StatusEOF:
			if store != nil {
				if err := store.InsertBatch(records); err != nil {
					return count, err
				}
			}
			return count, nil

		case glog.StatusNeedRecover:
			log.Printf("Skipped corrupted region in %s (code %d, offset %d)", path, res.Code, reader.Position())
			continue

		case glog.StatusSuccess:
			if res.Length == 0 {
				continue
			}
			entry, err := logproto.Unmarshal(buf[:res.Length])
			if err != nil {
				continue
			}
			if len(typeFilter) > 0 && !typeFilter[entry.Type] {
				continue
			}

			if _, err := fmt.Fprintln(writer, entry.Format()); err != nil {
				return count, err
			}
			if store != nil {
				records = append(records, logstore.Record{
					Source:    path,
					Type:      entry.Type,
					Timestamp: entry.Time().UnixMilli(),
					Level:     entry.Level.String(),
					PID:       entry.PID,
					TID:       entry.TID,
					Tag:       entry.Tag,
					Msg:       entry.Msg,
				})
			}
			count++
		}
	}
}

func parseTypeFilter(list string) (map[int32]bool, error) {
	filter := make(map[int32]bool)
	if list == "" {
		return filter, nil
	}
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseInt(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid log type %q: %w", part, err)
		}
		filter[int32(v)] = true
	}
	return filter, nil
}
