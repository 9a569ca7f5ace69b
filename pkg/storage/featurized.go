// Package storage writes featurized training events to durable sinks:
// the tab-separated text format consumed back by featurized-input
// runs, and a Parquet layout for downstream columnar tooling.
package storage

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"seqtag/pkg/events"
)

// WriteFeaturizedTSV emits the spec text format: one token per line,
// label first, blank line between sentences.
func WriteFeaturizedTSV(ev *events.Events, w io.Writer) error {
	return ev.WriteFeaturized(w)
}

// FeaturizedRecord is one token's worth of events in the Parquet sink.
type FeaturizedRecord struct {
	Sentence int64  `parquet:"name=sentence, type=INT64"`
	Label    string `parquet:"name=label, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Features string `parquet:"name=features, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// ParquetSink writes featurized events to a Parquet file.
type ParquetSink struct {
	path  string
	mutex sync.Mutex
}

func NewParquetSink(path string) *ParquetSink {
	return &ParquetSink{path: path}
}

// Write dumps every token row. Feature names keep the colon escaping
// of the text sink so both sinks agree on content.
func (s *ParquetSink) Write(ev *events.Events) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	fw, err := local.NewLocalFileWriter(s.path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(FeaturizedRecord), 4)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	beg := 0
	for senNo, end := range ev.SentEnd {
		for row := beg; row <= int(end); row++ {
			labelName, _ := ev.LabelBook.NameOf(int(ev.Labels[row]))
			names := ev.RowFeatureNames(row)
			rec := FeaturizedRecord{
				Sentence: int64(senNo),
				Label:    labelName,
				Features: strings.Join(names, "\t"),
			}
			if err := pw.Write(rec); err != nil {
				return fmt.Errorf("failed to write parquet record: %w", err)
			}
		}
		beg = int(end) + 1
	}

	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}
