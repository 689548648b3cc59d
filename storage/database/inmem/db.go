package inmemdb

import (
	"sync"

	"github.com/jmvidalr/corredora/core/contract"
	"github.com/jmvidalr/corredora/core/payment"
	"github.com/jmvidalr/corredora/core/product"
	"github.com/jmvidalr/corredora/core/reimbursement"
	"github.com/jmvidalr/corredora/core/user"
)

// DB is a map-backed store mirroring the SQL schema; test use only.
type (
	DB struct {
		user      *userTable
		tipo      *tipoTable
		producto  *productoTable
		contrato  *contratoTable
		pago      *pagoTable
		reembolso *reembolsoTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}
	tipoTable struct {
		sync.RWMutex
		table map[string]*product.TipoSeguro
	}
	productoTable struct {
		sync.RWMutex
		table map[string]*product.Producto
	}
	contratoTable struct {
		sync.RWMutex
		table map[string]*contract.Contrato
	}
	pagoTable struct {
		sync.RWMutex
		table map[string]*payment.Pago
	}
	reembolsoTable struct {
		sync.RWMutex
		table map[string]*reimbursement.Reembolso
	}
)

// Reset drops all rows from all tables.
func (db *DB) Reset() {
	db.user.Lock()
	db.user.table = make(map[string]*user.User)
	db.user.Unlock()

	db.tipo.Lock()
	db.tipo.table = make(map[string]*product.TipoSeguro)
	db.tipo.Unlock()

	db.producto.Lock()
	db.producto.table = make(map[string]*product.Producto)
	db.producto.Unlock()

	db.contrato.Lock()
	db.contrato.table = make(map[string]*contract.Contrato)
	db.contrato.Unlock()

	db.pago.Lock()
	db.pago.table = make(map[string]*payment.Pago)
	db.pago.Unlock()

	db.reembolso.Lock()
	db.reembolso.table = make(map[string]*reimbursement.Reembolso)
	db.reembolso.Unlock()
}

func Open() (*DB, error) {
	db := &DB{
		user:      &userTable{table: make(map[string]*user.User)},
		tipo:      &tipoTable{table: make(map[string]*product.TipoSeguro)},
		producto:  &productoTable{table: make(map[string]*product.Producto)},
		contrato:  &contratoTable{table: make(map[string]*contract.Contrato)},
		pago:      &pagoTable{table: make(map[string]*payment.Pago)},
		reembolso: &reembolsoTable{table: make(map[string]*reimbursement.Reembolso)},
	}
	return db, nil
}
