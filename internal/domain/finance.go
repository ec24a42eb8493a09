package domain

import "time"

// Budget is the yearly budget allocated to a program.
type Budget struct {
	ID        string    `json:"id"`
	ProgramID string    `json:"program_id"`
	Year      int       `json:"tahun"`
	Amount    float64   `json:"jumlah"`
	Notes     string    `json:"catatan"`
	UpdatedBy string    `json:"updated_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TransactionStatus is the approval state of a transaction.
type TransactionStatus string

// Transaction statuses.
const (
	TransactionPending  TransactionStatus = "pending"
	TransactionApproved TransactionStatus = "approved"
	TransactionRejected TransactionStatus = "rejected"
)

// TransactionType distinguishes income from spending.
type TransactionType string

// Transaction types.
const (
	TransactionIncome  TransactionType = "PEMASUKAN"
	TransactionExpense TransactionType = "PENGELUARAN"
)

// Transaction is a financial movement recorded against a program.
type Transaction struct {
	ID           string            `json:"id"`
	ProgramID    string            `json:"program_id"`
	Date         time.Time         `json:"tanggal"`
	Type         TransactionType   `json:"jenis"`
	Amount       float64           `json:"jumlah"`
	Description  string            `json:"keterangan"`
	Status       TransactionStatus `json:"status"`
	CreatedBy    string            `json:"created_by"`
	DecidedBy    *string           `json:"decided_by"`
	DecidedAt    *time.Time        `json:"decided_at"`
	DecisionNote *string           `json:"decision_note"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// ProgramFinanceSummary compares budget and approved spending for a program.
type ProgramFinanceSummary struct {
	ProgramID      string  `json:"program_id"`
	Year           int     `json:"tahun"`
	Budget         float64 `json:"anggaran"`
	ApprovedIncome float64 `json:"pemasukan_disetujui"`
	ApprovedSpend  float64 `json:"pengeluaran_disetujui"`
	PendingSpend   float64 `json:"pengeluaran_menunggu"`
	Remaining      float64 `json:"sisa_anggaran"`
}
