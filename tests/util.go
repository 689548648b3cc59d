package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jmvidalr/corredora/core"
	"github.com/jmvidalr/corredora/core/contract"
	"github.com/jmvidalr/corredora/core/payment"
	"github.com/jmvidalr/corredora/core/product"
	"github.com/jmvidalr/corredora/core/reimbursement"
	"github.com/jmvidalr/corredora/core/user"
)

// NewConfig returns a self-contained test configuration.
func NewConfig(tmpDir string) *core.Config {
	return &core.Config{
		Debug:                     true,
		TestMode:                  true,
		Env:                       "test",
		AppName:                   "Corredora",
		SecretKey:                 "secret",
		FrontendBaseURL:           "https://corredora.local",
		DefaultFromName:           "Corredora",
		DefaultFromAddress:        "noreply@corredora.local",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: core.ServerConfig{
			JWTExpirationDelta:        8 * time.Hour,
			JWTRefreshExpirationDelta: 7 * 24 * time.Hour,
		},
		Upload: core.UploadConfig{
			Dir:             tmpDir,
			MaxImageSize:    5 << 20,
			MaxDocumentSize: 10 << 20,
		},
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	nombre, apellido, uname, email, pwd, rol string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Nombre:    nombre,
		Apellido:  apellido,
		Username:  uname,
		Email:     email,
		Rol:       rol,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateTipo(t *testing.T, repo product.Repository, nombre string) product.TipoSeguro {
	t.Helper()

	tipo, err := repo.CreateTipo(context.Background(), product.TipoSeguro{Nombre: nombre})
	if err != nil {
		t.Fatalf("CreateTipo() failed: %v", err)
	}
	return tipo
}

func CreateProducto(t *testing.T, repo product.Repository, tipoID, nombre string, primaBase, cobertura float64) product.Producto {
	t.Helper()

	now := time.Now().UTC()
	prod := product.Producto{
		TipoID:    tipoID,
		Nombre:    nombre,
		PrimaBase: primaBase,
		Cobertura: cobertura,
		CreatedAt: now,
		UpdatedAt: now,
	}
	prod.SetActivo(true)
	prod, err := repo.CreateProducto(context.Background(), prod)
	if err != nil {
		t.Fatalf("CreateProducto() failed: %v", err)
	}
	return prod
}

// CreateContrato persists a contract (and, through the repository, its first
// pending installment dated fechaInicio).
func CreateContrato(
	t *testing.T,
	repo contract.Repository,
	clienteID, agenteID, productoID string,
	frecuencia contract.Frecuencia,
	monto float64,
	fechaInicio time.Time,
) contract.Contrato {
	t.Helper()

	now := time.Now().UTC()
	ctr := contract.Contrato{
		ClienteID:      clienteID,
		AgenteID:       agenteID,
		ProductoID:     productoID,
		Estado:         contract.EstadoPendiente,
		FechaInicio:    fechaInicio,
		FechaFin:       fechaInicio.AddDate(1, 0, 0),
		FrecuenciaPago: frecuencia,
		MontoPago:      monto,
		FormaPago:      contract.FormaPagoEfectivo,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	ctr, err := repo.CreateContrato(context.Background(), ctr)
	if err != nil {
		t.Fatalf("CreateContrato() failed: %v", err)
	}
	return ctr
}

// PendingPago returns the single pending installment of a contract.
func PendingPago(t *testing.T, repo payment.Repository, contratoID string) payment.Pago {
	t.Helper()

	pagos, err := repo.QueryPagos(context.Background(), &payment.QueryFilter{
		ContratoID: contratoID,
		Estado:     payment.EstadoPendiente,
	}, nil)
	if err != nil {
		t.Fatalf("PendingPago() failed: %v", err)
	}
	if len(pagos) != 1 {
		t.Fatalf("PendingPago() want exactly 1 pending installment, got %d", len(pagos))
	}
	return pagos[0]
}

func CreateReembolso(
	t *testing.T,
	repo reimbursement.Repository,
	clienteID, contratoID, categoria, recibo string,
	monto float64,
	estado reimbursement.Estado,
) reimbursement.Reembolso {
	t.Helper()

	rmb := reimbursement.Reembolso{
		ClienteID:  clienteID,
		ContratoID: contratoID,
		FechaGasto: time.Now().UTC(),
		Categoria:  categoria,
		Monto:      monto,
		Recibo:     recibo,
		Estado:     estado,
		CreadoPor:  reimbursement.CreadoPorCliente,
		CreatedAt:  time.Now().UTC(),
	}
	rmb, err := repo.CreateReembolso(context.Background(), rmb)
	if err != nil {
		t.Fatalf("CreateReembolso() failed: %v", err)
	}
	return rmb
}
