package mtproto

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/gotd/td/crypto"
	"github.com/gotd/td/session"
	"github.com/gotd/td/tg"
	_ "modernc.org/sqlite"
)

// ErrUnsupportedSessionFormat — данные сессии не удалось распознать.
var ErrUnsupportedSessionFormat = errors.New("unsupported MTProto session format")

// sqliteMagic открывает файлы SQLite, в них Telethon хранит .session.
var sqliteMagic = []byte("SQLite format 3\x00")

// IsSQLiteSession сообщает, похожи ли данные на файл SQLite.
func IsSQLiteSession(raw []byte) bool {
	return bytes.HasPrefix(raw, sqliteMagic)
}

// NormalizeSessionBytes приводит сессию к JSON-формату gotd.
// Поддерживаются JSON gotd, строковые сессии Telethon, экспорт аккаунта с extra_params
// и JSON-выгрузка таблицы sessions. Второй результат сообщает, понадобилось ли преобразование.
func NormalizeSessionBytes(raw []byte) ([]byte, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, false, errors.New("MTProto session is empty")
	}

	var gotd struct {
		Version int `json:"Version"`
	}
	if err := json.Unmarshal(trimmed, &gotd); err == nil && gotd.Version != 0 {
		return append([]byte(nil), trimmed...), false, nil
	}

	converters := []func([]byte) ([]byte, error){
		convertAccountJSON,
		convertSessionRowsJSON,
		convertStringSession,
	}
	for _, convert := range converters {
		if converted, err := convert(trimmed); err == nil {
			return converted, true, nil
		}
	}
	return nil, false, ErrUnsupportedSessionFormat
}

// ConvertSQLiteSession читает файл .session Telethon и возвращает сессию gotd.
func ConvertSQLiteSession(ctx context.Context, path string) ([]byte, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT dc_id, server_address, port, auth_key FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			dcID    int
			address sql.NullString
			port    sql.NullInt64
			authKey []byte
		)
		if err := rows.Scan(&dcID, &address, &port, &authKey); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		if !address.Valid || port.Int64 == 0 || len(authKey) == 0 {
			continue
		}
		return encodeSession(dcID, address.String, int(port.Int64), authKey)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: no usable rows in %s", ErrUnsupportedSessionFormat, path)
}

func convertAccountJSON(raw []byte) ([]byte, error) {
	var account struct {
		ExtraParams string `json:"extra_params"`
	}
	if err := json.Unmarshal(raw, &account); err != nil {
		return nil, err
	}
	if account.ExtraParams == "" {
		return nil, errors.New("account JSON lacks extra_params")
	}
	return convertStringSession([]byte(account.ExtraParams))
}

func convertSessionRowsJSON(raw []byte) ([]byte, error) {
	var rows []struct {
		DCID          int    `json:"dc_id"`
		ServerAddress string `json:"server_address"`
		Port          int    `json:"port"`
		AuthKey       string `json:"auth_key"`
	}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.AuthKey == "" || row.ServerAddress == "" || row.Port == 0 {
			continue
		}
		key, err := hex.DecodeString(strings.Trim(strings.TrimSpace(row.AuthKey), `'"`))
		if err != nil {
			return nil, fmt.Errorf("decode auth_key: %w", err)
		}
		return encodeSession(row.DCID, row.ServerAddress, row.Port, key)
	}
	return nil, errors.New("session rows JSON has no usable rows")
}

func convertStringSession(raw []byte) ([]byte, error) {
	candidate := strings.Trim(strings.TrimSpace(string(raw)), "\"'\n\r\t")
	if candidate == "" {
		return nil, errors.New("string session is empty")
	}

	data, err := session.TelethonSession(candidate)
	if err != nil {
		return nil, err
	}
	if data.Config.ThisDC == 0 {
		data.Config.ThisDC = data.DC
	}
	if data.Addr != "" && len(data.Config.DCOptions) == 0 {
		if host, portStr, err := net.SplitHostPort(data.Addr); err == nil {
			if port, err := strconv.Atoi(portStr); err == nil {
				data.Config.DCOptions = []tg.DCOption{{ID: data.DC, IPAddress: host, Port: port}}
			}
		}
	}
	return marshalSession(*data)
}

func encodeSession(dcID int, host string, port int, rawKey []byte) ([]byte, error) {
	var key crypto.Key
	if len(rawKey) != len(key) {
		return nil, fmt.Errorf("unexpected auth_key length: %d bytes", len(rawKey))
	}
	copy(key[:], rawKey)
	id := key.WithID().ID

	return marshalSession(session.Data{
		Config: session.Config{
			ThisDC:    dcID,
			DCOptions: []tg.DCOption{{ID: dcID, IPAddress: host, Port: port}},
		},
		DC:        dcID,
		Addr:      net.JoinHostPort(host, strconv.Itoa(port)),
		AuthKey:   append([]byte(nil), key[:]...),
		AuthKeyID: append([]byte(nil), id[:]...),
	})
}

func marshalSession(data session.Data) ([]byte, error) {
	return json.Marshal(struct {
		Version int          `json:"Version"`
		Data    session.Data `json:"Data"`
	}{Version: 1, Data: data})
}
