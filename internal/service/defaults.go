package service

import "github.com/mmeshcher/topup-system/internal/model"

// defaultSettings — начальные настройки сайта до первого сохранения администратором.
var defaultSettings = model.SiteSettings{
	BkashNumber:          "01619789895",
	NagadNumber:          "01619789895",
	BinanceID:            "1210169527",
	ServiceChargePercent: 0,
	NoticeText:           "Welcome! Double-check your UID for real-time delivery.",
	WhatsApp:             "8801619789895",
	Telegram:             "freefiretopupstore",
}

// defaultPackages — стартовый каталог, которым заполняется пустое хранилище.
var defaultPackages = []model.Package{
	{ID: "uid-25", Name: "25 Diamonds", Amount: 25, Price: 22, Type: model.PackageTypeDiamond, DeliveryTime: "5-10 Min"},
	{ID: "uid-50", Name: "50 Diamonds", Amount: 50, Price: 40, Type: model.PackageTypeDiamond, DeliveryTime: "5-10 Min"},
	{ID: "uid-115", Name: "115 Diamonds", Amount: 115, Price: 80, Type: model.PackageTypeDiamond, DeliveryTime: "5-10 Min"},
	{ID: "uid-240", Name: "240 Diamonds", Amount: 240, Price: 160, Type: model.PackageTypeDiamond, DeliveryTime: "5-10 Min"},
	{ID: "uid-355", Name: "355 Diamonds", Amount: 355, Price: 240, Type: model.PackageTypeDiamond, DeliveryTime: "5-10 Min"},
	{ID: "uid-480", Name: "480 Diamonds", Amount: 480, Price: 320, Type: model.PackageTypeDiamond, DeliveryTime: "5-10 Min"},
	{ID: "uid-610", Name: "610 Diamonds", Amount: 610, Price: 405, Type: model.PackageTypeDiamond, DeliveryTime: "5-10 Min"},
	{ID: "uid-1240", Name: "1240 Diamonds", Amount: 1240, Price: 810, Type: model.PackageTypeDiamond, DeliveryTime: "5-10 Min"},
	{ID: "uid-2530", Name: "2530 Diamonds", Amount: 2530, Price: 1620, Type: model.PackageTypeDiamond, DeliveryTime: "5-10 Min"},

	{ID: "ig-100", Name: "100 Diamonds (In-Game)", Amount: 100, Price: 65, Type: model.PackageTypeInGame, DeliveryTime: "15-45 Min"},
	{ID: "ig-310", Name: "310 Diamonds (In-Game)", Amount: 310, Price: 195, Type: model.PackageTypeInGame, DeliveryTime: "15-45 Min"},
	{ID: "ig-520", Name: "520 Diamonds (In-Game)", Amount: 520, Price: 325, Type: model.PackageTypeInGame, DeliveryTime: "15-45 Min"},
	{ID: "ig-1060", Name: "1060 Diamonds (In-Game)", Amount: 1060, Price: 640, Type: model.PackageTypeInGame, DeliveryTime: "15-45 Min"},

	{ID: "m-weekly", Name: "Weekly Membership", Amount: 0, Price: 155, Type: model.PackageTypeMembership, DeliveryTime: "10-30 Min"},
	{ID: "m-monthly", Name: "Monthly Membership", Amount: 0, Price: 750, Type: model.PackageTypeMembership, DeliveryTime: "10-30 Min"},
	{ID: "m-levelup", Name: "Level Up Pass", Amount: 0, Price: 185, Type: model.PackageTypeMembership, DeliveryTime: "10-30 Min"},
	{ID: "m-combo", Name: "Weekly + Monthly Combo", Amount: 0, Price: 895, Type: model.PackageTypeMembership, DeliveryTime: "10-30 Min"},
}
