package money

// yenTable - банкноты и монеты в порядке убывания
var yenTable = []Denomination{
	{Value: 10000, Label: "1万円札", Kind: KindBill, Front: "money_10000_shibusawa.png", Back: "money_10000_shibusawa.png", EdgeColor: 0x9cb78f},
	{Value: 5000, Label: "5千円札", Kind: KindBill, Front: "money_5000_tsuda.png", Back: "money_5000_tsuda.png", EdgeColor: 0x95b182},
	{Value: 1000, Label: "千円札", Kind: KindBill, Front: "money_1000_kitazato.png", Back: "money_1000_kitazato.png", EdgeColor: 0x94b08f},
	{Value: 500, Label: "500円硬貨", Kind: KindCoin, Front: "money_coin_blank_500_new.png", Back: "money_coin_blank_500.png", EdgeColor: 0xbab07f, Radius: 0.165, Thickness: 0.026},
	{Value: 100, Label: "100円硬貨", Kind: KindCoin, Front: "money_coin_blank_100.png", Back: "money_coin_blank_100.png", EdgeColor: 0xbfc0c4, Radius: 0.145, Thickness: 0.022},
	{Value: 50, Label: "50円硬貨", Kind: KindCoin, Front: "money_coin_blank_50.png", Back: "money_coin_blank_50.png", EdgeColor: 0xc0c2c5, Radius: 0.136, Thickness: 0.02},
	{Value: 10, Label: "10円硬貨", Kind: KindCoin, Front: "money_coin_blank_10.png", Back: "money_coin_blank_10.png", EdgeColor: 0x9f6d43, Radius: 0.125, Thickness: 0.02},
	{Value: 5, Label: "5円硬貨", Kind: KindCoin, Front: "money_coin_blank_5.png", Back: "money_coin_blank_5.png", EdgeColor: 0xb79f57, Radius: 0.132, Thickness: 0.019},
	{Value: 1, Label: "1円硬貨", Kind: KindCoin, Front: "money_coin_blank_1.png", Back: "money_coin_blank_1.png", EdgeColor: 0xc6c6c6, Radius: 0.118, Thickness: 0.016},
}

// yenExchange - каждый номинал разменивается на следующий меньший
var yenExchange = map[int64]int64{
	10000: 5000,
	5000:  1000,
	1000:  500,
	500:   100,
	100:   50,
	50:    10,
	10:    5,
	5:     1,
}

// Yen возвращает каталог японской иены
func Yen() *Catalog {
	list := make([]Denomination, len(yenTable))
	copy(list, yenTable)
	for i := range list {
		if list[i].IsBill() {
			list[i].Aspect = DefaultBillAspect
		}
	}
	c, err := NewCatalog(list, yenExchange)
	if err != nil {
		panic("money: invalid yen table: " + err.Error())
	}
	return c
}
