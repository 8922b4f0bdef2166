package parser

import (
	"github.com/FACorreiaa/epd-parser/internal/domain/epd/extractor"
)

var serviceHeader = []string{
	"Виды услуг", "Объем", "Ед. изм.", "Тариф", "Начислено",
	"Перерасчеты", "Задолженность/Переплата", "Оплачено", "Итого к оплате",
}

// serviceTable mirrors the charges table of a typical bill.
func serviceTable() extractor.Table {
	return extractor.Table{
		serviceHeader,
		{"1", "2", "3", "4", "5", "6", "7", "8", "9"},
		{"Начисления за жилищные услуги", "", "", "", "", "", "", "", ""},
		{"СОДЕРЖАНИЕ Ж/Ф", "54,30", "кв.м.", "32,15", "1 745,75", "0,00", "0,00", "1 745,75", "1 745,75"},
		{"Всего за жилищные услуги", "", "", "", "", "", "", "", "1 745,75"},
		{"Начисления за коммунальные услуги", "", "", "", "", "", "", "", ""},
		{"ВОДООТВЕДЕНИЕ ОДН", "0.00", "куб.м.", "40.06", "0.00", "0,00\n1 243,09", "0,00\n1 243,09", "0.00", "0.00"},
		{"ГОРЯЧЕЕ В/С", "", "", "", "", "", "", "", ""},
		{"(НОСИТЕЛЬ)", "3,20", "куб.м.", "35,50", "113,60", "0,00", "0,00", "113,60", "113,60"},
		{"ОДН", "", "", "", "", "", "", "", ""},
		{"ОТОПЛЕНИЕ", "1,20", "Гкал", "2 100,00", "2 520,00", "Доначисление 150,00", "0,00", "2 000,00", "2 670,00"},
		{"Начисления за иные услуги", "", "", "", "", "", "", "", ""},
		{"ЗАПИРАЮЩЕЕ УСТРОЙСТВО", "", "", "", "40,00", "", "", "", "40,00"},
		{"ДОБРОВОЛЬНОЕ СТРАХОВАНИЕ", "", "", "", "", "", "", "", "60,00"},
		{"Итого к оплате без учета добровольного страхования", "", "", "", "", "", "", "", "4 569,35"},
		{"Итого к оплате с учетом добровольного страхования", "", "", "", "", "", "", "", "4 629,35"},
	}
}

func recalculationTable() extractor.Table {
	return extractor.Table{
		{"Перерасчеты", "", "", ""},
		{"Вид услуги", "Период", "Основание", "Сумма, руб."},
		{"Горячее водоснабжение", "08.2025", "Корректировка показаний", "202,85-"},
		{"Отопление", "-", "Доначисление", "150,00"},
		{"Итого", "", "", "52,85-"},
	}
}

const firstPage = `ЕДИНЫЙ ПЛАТЕЖНЫЙ ДОКУМЕНТ
за июль 2025 г.
ФИО: Иванов Иван Иванович
Адрес: ул. Примерная, д. 1
Лицевой счет: 8 1234 5678
Оплатить до: 25.08.2025`
