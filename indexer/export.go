package indexer

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

const exportPageSize = 500

type parquetRow struct {
	Seq        int64  `parquet:"name=seq, type=INT64"`
	ID         string `parquet:"name=id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Height     int64  `parquet:"name=height, type=INT64"`
	Type       string `parquet:"name=type, type=BYTE_ARRAY, convertedtype=UTF8"`
	Pool       string `parquet:"name=pool, type=BYTE_ARRAY, convertedtype=UTF8"`
	Account    string `parquet:"name=account, type=BYTE_ARRAY, convertedtype=UTF8"`
	Attributes string `parquet:"name=attributes, type=BYTE_ARRAY, convertedtype=UTF8"`
	CreatedAt  string `parquet:"name=created_at, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// ExportParquet writes every retained record, oldest first, to a Parquet file
// at path and returns the number of rows written.
func (s *Store) ExportParquet(ctx context.Context, path string) (int, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("indexer: create parquet: %w", err)
	}
	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(parquetRow), 1)
	if err != nil {
		file.Close()
		return 0, fmt.Errorf("indexer: parquet schema: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	written := 0
	var after uint64
	for {
		var page []EventRecord
		err := s.db.WithContext(ctx).Where("seq > ?", after).Order("seq ASC").Limit(exportPageSize).Find(&page).Error
		if err != nil {
			file.Close()
			return written, err
		}
		for i := range page {
			rec := &page[i]
			row := &parquetRow{
				Seq:        int64(rec.Seq),
				ID:         rec.ID.String(),
				Height:     int64(rec.Height),
				Type:       rec.Type,
				Pool:       rec.Pool,
				Account:    rec.Account,
				Attributes: rec.Attributes,
				CreatedAt:  rec.CreatedAt.UTC().Format(time.RFC3339),
			}
			if err := pw.Write(row); err != nil {
				file.Close()
				return written, fmt.Errorf("indexer: write parquet row: %w", err)
			}
			written++
			after = rec.Seq
		}
		if len(page) < exportPageSize {
			break
		}
	}
	if err := pw.WriteStop(); err != nil {
		file.Close()
		return written, fmt.Errorf("indexer: finalise parquet: %w", err)
	}
	if err := file.Close(); err != nil {
		return written, err
	}
	s.log.Info("exported events", "path", path, "rows", written)
	return written, nil
}
