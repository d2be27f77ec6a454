// Package sqlstore implements store.Store over a SQL database, using sqlx
// for typed scanning and modernc.org/sqlite as the driver — a pure-Go
// SQLite build with no cgo toolchain dependency, matching the single-process
// bank's deployment model. Every composite mutation spec.md §4.9 requires to
// be atomic runs inside one transaction.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/chaincashlabs/chaincash/boxes"
	"github.com/chaincashlabs/chaincash/store"
)

// SQLStore implements store.Store.
type SQLStore struct {
	db *sqlx.DB
}

// Open connects to dsn (a modernc.org/sqlite data source name, e.g.
// "file:chaincash.db?_pragma=foreign_keys(1)"), applies pending migrations,
// and returns a ready SQLStore.
func Open(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("sqlstore: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		return nil, fmt.Errorf("sqlstore: enable foreign keys: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		return nil, err
	}
	return &SQLStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error { return s.db.Close() }

var _ store.Store = (*SQLStore)(nil)

func pubkeyBytes(pub *btcec.PublicKey) []byte {
	if pub == nil {
		return nil
	}
	return pub.SerializeCompressed()
}

func parsePubkey(b []byte) (*btcec.PublicKey, error) {
	if len(b) == 0 {
		return nil, nil
	}
	return btcec.ParsePubKey(b)
}

// --- notes ---

type noteJoinRow struct {
	ID           int64  `db:"id"`
	BoxID        []byte `db:"box_id"`
	BoxData      []byte `db:"box_data"`
	Identifier   []byte `db:"identifier"`
	Owner        []byte `db:"owner"`
	Value        int64  `db:"value"`
	Length       int64  `db:"length"`
	Denomination *string `db:"denomination"`
}

type entryRow struct {
	Position       int    `db:"position"`
	ReserveNftID   []byte `db:"reserve_nft_id"`
	Amount         int64  `db:"amount"`
	SignatureBytes []byte `db:"signature_bytes"`
}

func (s *SQLStore) AddNote(ctx context.Context, row store.NoteRow) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: add note: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO ergo_boxes(box_id, box_data) VALUES (?, ?)`, row.BoxID[:], row.BoxBytes)
	if err != nil {
		return fmt.Errorf("sqlstore: add note: insert box: %w", err)
	}
	ergoBoxID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	noteRes, err := tx.ExecContext(ctx,
		`INSERT INTO notes(ergo_box_id, identifier, owner, value, length, denomination) VALUES (?, ?, ?, ?, ?, ?)`,
		ergoBoxID, row.Identifier[:], pubkeyBytes(row.Owner), row.Value, row.Length, row.Denomination)
	if err != nil {
		return fmt.Errorf("sqlstore: add note: insert note: %w", err)
	}
	noteID, err := noteRes.LastInsertId()
	if err != nil {
		return err
	}

	for _, e := range row.OwnershipEntries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ownership_entries(note_id, position, reserve_nft_id, amount, signature_bytes) VALUES (?, ?, ?, ?, ?)`,
			noteID, e.Position, e.ReserveNftID[:], e.Amount, e.SignatureBytes); err != nil {
			return fmt.Errorf("sqlstore: add note: insert entry: %w", err)
		}
	}

	return tx.Commit()
}

const noteSelect = `SELECT n.id AS id, b.box_id AS box_id, b.box_data AS box_data, n.identifier AS identifier,
	n.owner AS owner, n.value AS value, n.length AS length, n.denomination AS denomination
	FROM notes n JOIN ergo_boxes b ON b.id = n.ergo_box_id`

func (s *SQLStore) scanNote(ctx context.Context, query string, args ...interface{}) (*store.NoteRow, error) {
	var nr noteJoinRow
	if err := s.db.GetContext(ctx, &nr, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	var entries []entryRow
	if err := s.db.SelectContext(ctx, &entries,
		`SELECT position, reserve_nft_id, amount, signature_bytes FROM ownership_entries WHERE note_id = ? ORDER BY position`, nr.ID); err != nil {
		return nil, err
	}

	return noteRowFromJoin(nr, entries)
}

func noteRowFromJoin(nr noteJoinRow, entries []entryRow) (*store.NoteRow, error) {
	owner, err := parsePubkey(nr.Owner)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: corrupt owner in note %d: %w", nr.ID, err)
	}
	row := &store.NoteRow{
		ID:           nr.ID,
		Owner:        owner,
		Value:        uint64(nr.Value),
		Length:       uint64(nr.Length),
		Denomination: nr.Denomination,
		BoxBytes:     nr.BoxData,
	}
	copy(row.BoxID[:], nr.BoxID)
	copy(row.Identifier[:], nr.Identifier)
	for _, e := range entries {
		var entry store.OwnershipEntryRow
		entry.Position = e.Position
		entry.Amount = uint64(e.Amount)
		entry.SignatureBytes = e.SignatureBytes
		copy(entry.ReserveNftID[:], e.ReserveNftID)
		row.OwnershipEntries = append(row.OwnershipEntries, entry)
	}
	return row, nil
}

func (s *SQLStore) GetNoteByID(ctx context.Context, id int64) (*store.NoteRow, error) {
	return s.scanNote(ctx, noteSelect+` WHERE n.id = ?`, id)
}

func (s *SQLStore) GetNoteByBoxID(ctx context.Context, boxID boxes.BoxID) (*store.NoteRow, error) {
	return s.scanNote(ctx, noteSelect+` WHERE b.box_id = ?`, boxID[:])
}

func (s *SQLStore) GetNoteByIdentifier(ctx context.Context, identifier boxes.TokenID) (*store.NoteRow, error) {
	return s.scanNote(ctx, noteSelect+` WHERE n.identifier = ?`, identifier[:])
}

func (s *SQLStore) DeleteNote(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM ergo_boxes WHERE id = (SELECT ergo_box_id FROM notes WHERE id = ?)`, id)
	return err
}

func (s *SQLStore) ListNotesByPubkey(ctx context.Context, pub *btcec.PublicKey) ([]store.NoteRow, error) {
	var joins []noteJoinRow
	if err := s.db.SelectContext(ctx, &joins, noteSelect+` WHERE n.owner = ?`, pubkeyBytes(pub)); err != nil {
		return nil, err
	}
	rows := make([]store.NoteRow, 0, len(joins))
	for _, nr := range joins {
		var entries []entryRow
		if err := s.db.SelectContext(ctx, &entries,
			`SELECT position, reserve_nft_id, amount, signature_bytes FROM ownership_entries WHERE note_id = ? ORDER BY position`, nr.ID); err != nil {
			return nil, err
		}
		row, err := noteRowFromJoin(nr, entries)
		if err != nil {
			return nil, err
		}
		rows = append(rows, *row)
	}
	return rows, nil
}

func (s *SQLStore) DeleteNotesNotIn(ctx context.Context, liveBoxIDs []boxes.BoxID) error {
	if len(liveBoxIDs) == 0 {
		_, err := s.db.ExecContext(ctx, `DELETE FROM ergo_boxes WHERE id IN (SELECT ergo_box_id FROM notes)`)
		return err
	}
	ids := boxIDBytes(liveBoxIDs)
	query, args, err := sqlx.In(
		`DELETE FROM ergo_boxes WHERE id IN (SELECT ergo_box_id FROM notes) AND box_id NOT IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("sqlstore: delete notes not in: %w", err)
	}
	query = s.db.Rebind(query)
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

func boxIDBytes(ids []boxes.BoxID) [][]byte {
	out := make([][]byte, len(ids))
	for i, id := range ids {
		out[i] = append([]byte(nil), id[:]...)
	}
	return out
}

// --- reserves ---

type reserveJoinRow struct {
	ID           int64  `db:"id"`
	BoxID        []byte `db:"box_id"`
	BoxData      []byte `db:"box_data"`
	Identifier   []byte `db:"identifier"`
	Owner        []byte `db:"owner"`
	Value        int64  `db:"value"`
	RefundHeight *int64 `db:"refund_height"`
}

const reserveSelect = `SELECT r.id AS id, b.box_id AS box_id, b.box_data AS box_data, r.identifier AS identifier,
	r.owner AS owner, r.value AS value, r.refund_height AS refund_height
	FROM reserves r JOIN ergo_boxes b ON b.id = r.ergo_box_id`

func reserveRowFromJoin(rr reserveJoinRow) (*store.ReserveRow, error) {
	owner, err := parsePubkey(rr.Owner)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: corrupt owner in reserve %d: %w", rr.ID, err)
	}
	row := &store.ReserveRow{
		ID:           rr.ID,
		Owner:        owner,
		Value:        uint64(rr.Value),
		RefundHeight: rr.RefundHeight,
		BoxBytes:     rr.BoxData,
	}
	copy(row.BoxID[:], rr.BoxID)
	copy(row.Identifier[:], rr.Identifier)
	return row, nil
}

func (s *SQLStore) AddOrUpdateReserve(ctx context.Context, row store.ReserveRow) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: add-or-update reserve: begin: %w", err)
	}
	defer tx.Rollback()

	var oldErgoBoxID sql.NullInt64
	err = tx.GetContext(ctx, &oldErgoBoxID, `SELECT ergo_box_id FROM reserves WHERE identifier = ?`, row.Identifier[:])
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sqlstore: add-or-update reserve: lookup: %w", err)
	}
	if oldErgoBoxID.Valid {
		if _, err := tx.ExecContext(ctx, `DELETE FROM ergo_boxes WHERE id = ?`, oldErgoBoxID.Int64); err != nil {
			return fmt.Errorf("sqlstore: add-or-update reserve: delete old box: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO ergo_boxes(box_id, box_data) VALUES (?, ?)`, row.BoxID[:], row.BoxBytes)
	if err != nil {
		return fmt.Errorf("sqlstore: add-or-update reserve: insert box: %w", err)
	}
	ergoBoxID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO reserves(ergo_box_id, identifier, owner, value, refund_height) VALUES (?, ?, ?, ?, ?)`,
		ergoBoxID, row.Identifier[:], pubkeyBytes(row.Owner), row.Value, row.RefundHeight); err != nil {
		return fmt.Errorf("sqlstore: add-or-update reserve: insert reserve: %w", err)
	}

	return tx.Commit()
}

func (s *SQLStore) GetReserveByIdentifier(ctx context.Context, id boxes.TokenID) (*store.ReserveRow, error) {
	var rr reserveJoinRow
	if err := s.db.GetContext(ctx, &rr, reserveSelect+` WHERE r.identifier = ?`, id[:]); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return reserveRowFromJoin(rr)
}

func (s *SQLStore) ListReservesByPubkey(ctx context.Context, pub *btcec.PublicKey) ([]store.ReserveRow, error) {
	var joins []reserveJoinRow
	if err := s.db.SelectContext(ctx, &joins, reserveSelect+` WHERE r.owner = ?`, pubkeyBytes(pub)); err != nil {
		return nil, err
	}
	rows := make([]store.ReserveRow, 0, len(joins))
	for _, rr := range joins {
		row, err := reserveRowFromJoin(rr)
		if err != nil {
			return nil, err
		}
		rows = append(rows, *row)
	}
	return rows, nil
}

func (s *SQLStore) DeleteReservesNotIn(ctx context.Context, liveBoxIDs []boxes.BoxID) error {
	if len(liveBoxIDs) == 0 {
		_, err := s.db.ExecContext(ctx, `DELETE FROM ergo_boxes WHERE id IN (SELECT ergo_box_id FROM reserves)`)
		return err
	}
	ids := boxIDBytes(liveBoxIDs)
	query, args, err := sqlx.In(
		`DELETE FROM ergo_boxes WHERE id IN (SELECT ergo_box_id FROM reserves) AND box_id NOT IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("sqlstore: delete reserves not in: %w", err)
	}
	query = s.db.Rebind(query)
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

// --- scans ---

func (s *SQLStore) AddScan(ctx context.Context, row store.ScanRow) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO scans(scan_id, scan_type, scan_name) VALUES (?, ?, ?)`,
		row.ScanID, string(row.ScanType), row.ScanName)
	return err
}

func (s *SQLStore) DeleteScan(ctx context.Context, scanID int32) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM scans WHERE scan_id = ?`, scanID)
	return err
}

func (s *SQLStore) ListScansByType(ctx context.Context, t store.ScanType) ([]store.ScanRow, error) {
	var rows []struct {
		ScanID   int32  `db:"scan_id"`
		ScanType string `db:"scan_type"`
		ScanName string `db:"scan_name"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT scan_id, scan_type, scan_name FROM scans WHERE scan_type = ?`, string(t)); err != nil {
		return nil, err
	}
	out := make([]store.ScanRow, len(rows))
	for i, r := range rows {
		out[i] = store.ScanRow{ScanID: r.ScanID, ScanType: store.ScanType(r.ScanType), ScanName: r.ScanName}
	}
	return out, nil
}
