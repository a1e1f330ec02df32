package ledger

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"iter"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS audit_records (
	seq          INTEGER PRIMARY KEY,
	id           TEXT NOT NULL,
	kind         TEXT NOT NULL,
	payload      BLOB NOT NULL,
	payload_hash TEXT NOT NULL,
	prev_hash    TEXT NOT NULL,
	hash         TEXT NOT NULL,
	signer       TEXT NOT NULL,
	signature    BLOB NOT NULL,
	created_at   TEXT NOT NULL
);
`
// #endregion schema

// #region ledger
// Ledger is the append-only, hash-chained audit store. Appends serialize
// under a mutex so the chain head is read and extended atomically.
type Ledger struct {
	mu       sync.Mutex
	db       *sql.DB
	signer   Signer
	verifier Verifier
}

// Open opens (or creates) a ledger database with injected sign/verify
// collaborators.
func Open(dbPath string, signer Signer, verifier Verifier) (*Ledger, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Ledger{db: db, signer: signer, verifier: verifier}, nil
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// #endregion ledger

// #region append
// Append hashes the payload, links it to the previous record, obtains a
// signature from the external signer, and stores the result. A signer
// failure aborts the append with ErrSigningUnavailable and nothing stored.
func (l *Ledger) Append(kind string, payload []byte) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prevSeq, prevHash, err := l.head()
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		Seq:         prevSeq + 1,
		ID:          uuid.New().String(),
		Kind:        kind,
		Payload:     append([]byte(nil), payload...),
		PayloadHash: hexHash(payload),
		PrevHash:    prevHash,
		CreatedAt:   time.Now().UTC(),
	}
	rec.Hash = chainHash(rec)

	identity, sig, err := l.signer.Sign(mustDecodeHex(rec.Hash))
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrSigningUnavailable, err)
	}
	rec.Signer = identity
	rec.Signature = sig

	_, err = l.db.Exec(
		`INSERT INTO audit_records
		 (seq, id, kind, payload, payload_hash, prev_hash, hash, signer, signature, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Seq, rec.ID, rec.Kind, rec.Payload, rec.PayloadHash, rec.PrevHash,
		rec.Hash, rec.Signer, rec.Signature, rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert record: %w", err)
	}
	return rec, nil
}

// head returns the sequence number and hash of the newest record, or the
// genesis link for an empty ledger.
func (l *Ledger) head() (uint64, string, error) {
	var seq uint64
	var hash string
	err := l.db.QueryRow(`SELECT seq, hash FROM audit_records ORDER BY seq DESC LIMIT 1`).Scan(&seq, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, genesisHash, nil
	}
	if err != nil {
		return 0, "", fmt.Errorf("read head: %w", err)
	}
	return seq, hash, nil
}

// #endregion append

// #region verify
// VerifyChain recomputes hashes and signatures over [fromSeq, toSeq]. The
// first broken link is reported as an IntegrityError; every record after it
// is unverifiable by construction.
func (l *Ledger) VerifyChain(fromSeq, toSeq uint64) error {
	prevHash := genesisHash
	if fromSeq > 1 {
		var h string
		err := l.db.QueryRow(`SELECT hash FROM audit_records WHERE seq = ?`, fromSeq-1).Scan(&h)
		if err != nil {
			return fmt.Errorf("read predecessor of seq %d: %w", fromSeq, err)
		}
		prevHash = h
	}

	for rec, err := range l.scan(fromSeq, toSeq) {
		if err != nil {
			return err
		}
		if rec.PrevHash != prevHash {
			return &IntegrityError{Seq: rec.Seq, Detail: "broken chain link"}
		}
		if hexHash(rec.Payload) != rec.PayloadHash {
			return &IntegrityError{Seq: rec.Seq, Detail: "payload hash mismatch"}
		}
		if chainHash(rec) != rec.Hash {
			return &IntegrityError{Seq: rec.Seq, Detail: "record hash mismatch"}
		}
		if !l.verifier.Verify(mustDecodeHex(rec.Hash), rec.Signer, rec.Signature) {
			return &IntegrityError{Seq: rec.Seq, Detail: "signature verification failed"}
		}
		prevHash = rec.Hash
	}
	return nil
}

// #endregion verify

// #region query
// Query returns a lazy, restartable sequence of records matching pred, in
// insertion (chain) order. Iteration re-reads the store, so a new range loop
// observes appends made since the last one. Read-only.
func (l *Ledger) Query(pred func(Record) bool) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for rec, err := range l.scan(1, math.MaxInt64) {
			if err != nil {
				yield(Record{}, err)
				return
			}
			if pred != nil && !pred(rec) {
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// scan streams records with seq in [from, to] in insertion order.
func (l *Ledger) scan(from, to uint64) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		rows, err := l.db.Query(
			`SELECT seq, id, kind, payload, payload_hash, prev_hash, hash, signer, signature, created_at
			 FROM audit_records WHERE seq >= ? AND seq <= ? ORDER BY seq ASC`, from, to)
		if err != nil {
			yield(Record{}, fmt.Errorf("scan records: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var rec Record
			var created string
			if err := rows.Scan(&rec.Seq, &rec.ID, &rec.Kind, &rec.Payload,
				&rec.PayloadHash, &rec.PrevHash, &rec.Hash, &rec.Signer,
				&rec.Signature, &created); err != nil {
				yield(Record{}, fmt.Errorf("scan record: %w", err))
				return
			}
			rec.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
			if err != nil {
				yield(Record{}, fmt.Errorf("parse created_at: %w", err))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Record{}, err)
		}
	}
}

// #endregion query

// #region hashing

// genesisHash is the link target of the first record.
var genesisHash = hexHash(nil)

// chainHash computes the record hash over a fixed-order preimage. Signature
// and signer are excluded: the signature covers the hash, not vice versa.
func chainHash(rec Record) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d\n%s\n%s\n%s\n%s\n%s\n",
		rec.Seq, rec.ID, rec.Kind, rec.PayloadHash, rec.PrevHash,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano))
	return hex.EncodeToString(h.Sum(nil))
}

func hexHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func mustDecodeHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		// Hashes are produced locally; a decode failure is a programming error.
		panic(err)
	}
	return b
}

// #endregion hashing
