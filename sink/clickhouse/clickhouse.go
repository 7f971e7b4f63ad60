package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/ClickHouse/clickhouse-go/v2/lib/proto"
	"hermannm.dev/gaquery/config"
	"hermannm.dev/wrap"
)

// Implements sink.Sink for ClickHouse.
type ClickHouseSink struct {
	conn driver.Conn
}

func NewClickHouseSink(config config.ClickHouse) (ClickHouseSink, error) {
	// Options docs: https://clickhouse.com/docs/en/integrations/go#connection-settings
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{config.Address},
		Auth: clickhouse.Auth{
			Database: config.DatabaseName,
			Username: config.Username,
			Password: config.Password,
		},
		Debug: config.Debug,
		Debugf: func(format string, v ...any) {
			fmt.Printf(format+"\n", v...)
		},
		Compression: &clickhouse.Compression{Method: clickhouse.CompressionLZ4},
	})
	if err != nil {
		return ClickHouseSink{}, wrap.Error(err, "failed to connect to ClickHouse")
	}

	return ClickHouseSink{conn: conn}, nil
}

func (clickhouse ClickHouseSink) DropTable(
	ctx context.Context,
	table string,
) (alreadyDropped bool, err error) {
	query, err := dropTableQuery(table)
	if err != nil {
		return false, err
	}

	// See https://github.com/ClickHouse/ClickHouse/blob/bd387f6d2c30f67f2822244c0648f2169adab4d3/src/Common/ErrorCodes.cpp#L66
	const clickhouseUnknownTableErrorCode = 60

	if err := clickhouse.conn.Exec(ctx, query); err != nil {
		clickHouseErr, isClickHouseErr := err.(*proto.Exception)
		if isClickHouseErr && clickHouseErr.Code == clickhouseUnknownTableErrorCode {
			return true, nil
		}

		return false, wrap.Error(err, "ClickHouse table drop query failed")
	}

	return false, nil
}

func (clickhouse ClickHouseSink) Close() error {
	return clickhouse.conn.Close()
}
