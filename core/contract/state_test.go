package contract

import "testing"

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		current Estado
		evento  Evento
		want    Estado
		wantErr bool
	}{
		{name: "approve pending", current: EstadoPendiente, evento: EventoAprobar, want: EstadoActivo},
		{name: "reject pending", current: EstadoPendiente, evento: EventoRechazar, want: EstadoRechazado},
		{name: "approve after review", current: EstadoPendienteRevision, evento: EventoAprobar, want: EstadoActivo},
		{name: "reject after review", current: EstadoPendienteRevision, evento: EventoRechazar, want: EstadoRechazado},
		{name: "resubmit from pending", current: EstadoPendiente, evento: EventoReenviarDocs, want: EstadoPendienteRevision},
		{name: "resubmit from active", current: EstadoActivo, evento: EventoReenviarDocs, want: EstadoPendienteRevision},
		{name: "resubmit from rejected", current: EstadoRechazado, evento: EventoReenviarDocs, want: EstadoPendienteRevision},
		{name: "resubmit from review", current: EstadoPendienteRevision, evento: EventoReenviarDocs, want: EstadoPendienteRevision},
		{name: "approve active", current: EstadoActivo, evento: EventoAprobar, wantErr: true},
		{name: "reject active", current: EstadoActivo, evento: EventoRechazar, wantErr: true},
		// a rejected contract must go through re-review before activation
		{name: "approve rejected", current: EstadoRechazado, evento: EventoAprobar, wantErr: true},
		{name: "reject rejected", current: EstadoRechazado, evento: EventoRechazar, wantErr: true},
		{name: "unknown state", current: Estado("lol"), evento: EventoAprobar, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.current, tt.evento)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Transition() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Transition() = %v, want %v", got, tt.want)
			}
		})
	}
}
