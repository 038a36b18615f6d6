package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// TxBeginner 開啟交易的最小介面，*pgxpool.Pool 即符合
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}
