package hire

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"gigflow/bid"
	"gigflow/gig"
)

// memDB is an in-memory read-committed store. Gig rows carry locks taken by
// GetForUpdate and held until the transaction ends; writes are staged per
// transaction and applied on Commit.
type memDB struct {
	mu       sync.Mutex
	gigs     map[string]gig.Gig
	bids     map[string]bid.Bid
	users    map[string][2]string
	rowLocks map[string]*sync.Mutex
	seq      int

	beginErr     error
	commitErr    error
	markHiredErr error
	rejectErr    error
	detailErr    error

	commits   int
	rollbacks int
	execs     []string
}

func newMemDB() *memDB {
	return &memDB{
		gigs:     map[string]gig.Gig{},
		bids:     map[string]bid.Bid{},
		users:    map[string][2]string{},
		rowLocks: map[string]*sync.Mutex{},
	}
}

func (db *memDB) addUser(id, name, email string) {
	db.users[id] = [2]string{name, email}
}

func (db *memDB) addGig(id, ownerID, title string) {
	db.gigs[id] = gig.Gig{ID: id, OwnerID: ownerID, Title: title, Budget: 100, Status: gig.StatusOpen}
	db.rowLocks[id] = &sync.Mutex{}
}

func (db *memDB) addBid(id, gigID, freelancerID string) {
	db.seq++
	db.bids[id] = bid.Bid{ID: id, GigID: gigID, FreelancerID: freelancerID, Message: "pick me", Price: float64(db.seq), Status: bid.StatusPending}
}

func (db *memDB) gig(id string) gig.Gig {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.gigs[id]
}

func (db *memDB) bidStatus(id string) bid.Status {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.bids[id].Status
}

func (db *memDB) bidStatuses(gigID string) map[string]bid.Status {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := map[string]bid.Status{}
	for id, b := range db.bids {
		if b.GigID == gigID {
			out[id] = b.Status
		}
	}
	return out
}

func (db *memDB) Begin(ctx context.Context) (pgx.Tx, error) {
	if db.beginErr != nil {
		return nil, db.beginErr
	}
	return &memTx{db: db, gigs: map[string]gig.Gig{}, bids: map[string]bid.Bid{}}, nil
}

// GetForUpdate, MarkAssigned: GigStore.

func (db *memDB) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (gig.Gig, error) {
	mt := tx.(*memTx)
	db.mu.Lock()
	lock, ok := db.rowLocks[id]
	db.mu.Unlock()
	if !ok {
		return gig.Gig{}, gig.ErrNotFound
	}
	lock.Lock()
	mt.held = append(mt.held, lock)

	db.mu.Lock()
	defer db.mu.Unlock()
	g, ok := db.gigs[id]
	if !ok {
		return gig.Gig{}, gig.ErrNotFound
	}
	return g, nil
}

func (db *memDB) MarkAssigned(ctx context.Context, tx pgx.Tx, id string) error {
	mt := tx.(*memTx)
	g, ok := mt.readGig(id)
	if !ok || g.Status != gig.StatusOpen {
		return gig.ErrNotOpen
	}
	g.Status = gig.StatusAssigned
	mt.gigs[id] = g
	return nil
}

// Get, MarkHired, RejectOthers, GetDetail: BidStore.

func (db *memDB) Get(ctx context.Context, tx pgx.Tx, id string) (bid.Bid, error) {
	b, ok := tx.(*memTx).readBid(id)
	if !ok {
		return bid.Bid{}, bid.ErrNotFound
	}
	return b, nil
}

func (db *memDB) MarkHired(ctx context.Context, tx pgx.Tx, id string) (bid.Bid, error) {
	if db.markHiredErr != nil {
		return bid.Bid{}, db.markHiredErr
	}
	mt := tx.(*memTx)
	b, ok := mt.readBid(id)
	if !ok || b.Status != bid.StatusPending {
		return bid.Bid{}, bid.ErrNotPending
	}
	b.Status = bid.StatusHired
	mt.bids[id] = b
	return b, nil
}

func (db *memDB) RejectOthers(ctx context.Context, tx pgx.Tx, gigID, winnerID string) (int64, error) {
	if db.rejectErr != nil {
		return 0, db.rejectErr
	}
	mt := tx.(*memTx)
	db.mu.Lock()
	ids := make([]string, 0, len(db.bids))
	for id, b := range db.bids {
		if b.GigID == gigID && id != winnerID {
			ids = append(ids, id)
		}
	}
	db.mu.Unlock()
	sort.Strings(ids)

	var n int64
	for _, id := range ids {
		b, _ := mt.readBid(id)
		if b.Status == bid.StatusRejected {
			continue
		}
		b.Status = bid.StatusRejected
		mt.bids[id] = b
		n++
	}
	return n, nil
}

func (db *memDB) GetDetail(ctx context.Context, id string) (bid.Detail, error) {
	if db.detailErr != nil {
		return bid.Detail{}, db.detailErr
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	b, ok := db.bids[id]
	if !ok {
		return bid.Detail{}, bid.ErrNotFound
	}
	u := db.users[b.FreelancerID]
	return bid.Detail{Bid: b, FreelancerName: u[0], FreelancerEmail: u[1]}, nil
}

type memTx struct {
	db   *memDB
	gigs map[string]gig.Gig
	bids map[string]bid.Bid
	held []*sync.Mutex
	done bool
}

func (tx *memTx) readGig(id string) (gig.Gig, bool) {
	if g, ok := tx.gigs[id]; ok {
		return g, true
	}
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	g, ok := tx.db.gigs[id]
	return g, ok
}

func (tx *memTx) readBid(id string) (bid.Bid, bool) {
	if b, ok := tx.bids[id]; ok {
		return b, true
	}
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	b, ok := tx.db.bids[id]
	return b, ok
}

func (tx *memTx) release() {
	for i := len(tx.held) - 1; i >= 0; i-- {
		tx.held[i].Unlock()
	}
	tx.held = nil
	tx.done = true
}

func (tx *memTx) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("memTx does not support nested transactions")
}

func (tx *memTx) Commit(context.Context) error {
	if tx.done {
		return pgx.ErrTxClosed
	}
	defer tx.release()

	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	if tx.db.commitErr != nil {
		tx.db.rollbacks++
		return tx.db.commitErr
	}
	for id, g := range tx.gigs {
		tx.db.gigs[id] = g
	}
	for id, b := range tx.bids {
		tx.db.bids[id] = b
	}
	tx.db.commits++
	return nil
}

func (tx *memTx) Rollback(context.Context) error {
	if tx.done {
		return pgx.ErrTxClosed
	}
	tx.release()
	tx.db.mu.Lock()
	tx.db.rollbacks++
	tx.db.mu.Unlock()
	return nil
}

func (tx *memTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}

func (tx *memTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}

func (tx *memTx) LargeObjects() pgx.LargeObjects {
	panic("not implemented")
}

func (tx *memTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}

func (tx *memTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	tx.db.mu.Lock()
	tx.db.execs = append(tx.db.execs, sql)
	tx.db.mu.Unlock()
	return pgconn.NewCommandTag("SET"), nil
}

func (tx *memTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("not implemented")
}

func (tx *memTx) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("not implemented")
}

func (tx *memTx) Conn() *pgx.Conn {
	return nil
}
