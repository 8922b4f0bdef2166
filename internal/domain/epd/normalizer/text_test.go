package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Объём", "объем"},
		{"Начислено  по\nтарифу, руб.", "начислено по тарифу, руб."},
		{"ИТОГО К ОПЛАТЕ", "итого к оплате"},
		{"  Ед. изм. ", "ед. изм."},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Fold(tt.input))
		})
	}
}

func TestCleanServiceName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "ОТОПЛЕНИЕ", "ОТОПЛЕНИЕ"},
		{"wrapped", "ГОРЯЧЕЕ В/С\n(ЭНЕРГИЯ)", "ГОРЯЧЕЕ В/С (ЭНЕРГИЯ)"},
		{"glued amount", "ХОЛОДНОЕ В/С 40,06", "ХОЛОДНОЕ В/С"},
		{"glued amounts in the middle", "ВОДООТВЕДЕНИЕ 1,00 2,00 ОДН", "ВОДООТВЕДЕНИЕ ОДН"},
		{"keeps plain digits", "Электроэнергия Т1", "Электроэнергия Т1"},
		{"trailing punctuation", "СОДЕРЖАНИЕ Ж/Ф;", "СОДЕРЖАНИЕ Ж/Ф"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanServiceName(tt.input))
		})
	}
}
