package localization

import "fmt"

// Catalog holds the bot's user-facing message templates. The bot speaks a
// single language, so the catalog is compiled in and keyed by message name.
type Catalog struct {
	messages map[string]string
}

func New() *Catalog {
	return &Catalog{messages: messages}
}

// Get returns the template for key, formatted with args when given.
func (c *Catalog) Get(key string, args ...interface{}) string {
	template, exists := c.messages[key]
	if !exists {
		return fmt.Sprintf("Missing message: %s", key)
	}
	if len(args) > 0 {
		return fmt.Sprintf(template, args...)
	}
	return template
}

var messages = map[string]string{
	"main_menu": "🎉 Salamaleýkum! Ref botuna hoş geldiňiz!\n\n" +
		"🔗 Ref link döretmek üçin balans bölümini açyň\n" +
		"💰 Her tassyklanan ref üçin %d bal alarsyňyz\n" +
		"🎁 Ballary sowgatlara çalyşyp bilersiňiz\n\n" +
		"Kanal: %s",

	"new_referral":       "🎉 Size täze ref geldi! +%d bal goşuldy!",
	"referred_welcome":   "✅ Hoş geldiňiz! Ref arkaly agza boldyňyz.",
	"join_channel_first": "❌ Ozal kanala agza bolmaly: %s",
	"user_not_found":     "❌ Ulanyjy tapylmady.",
	"unknown_command":    "❌ Nätanyş buýruk. Menýudan saýlaň.",

	"balance": "💰 **Balansiňyz:** %d bal\n🔗 **Ref linki:**\n`%s`\n\n" +
		"Her ref üçin %d bal alarsyňyz!\nLink arkaly adamlar kanala agza bolmaly.",

	"referrals_none":   "❌ Henizem hiç kim çagyrylmady.",
	"referrals_header": "👥 **Çagyranlarym:**\n\n",
	"referrals_entry":  "%d. @%s (%s)\n   📅 %s\n\n",
	"referrals_more":   "... we ýene %d adam",

	"top_none":   "❌ Ulanyjylar tapylmady.",
	"top_header": "🏆 **Top 10 ulanyjy:**\n\n",
	"top_entry":  "%s @%s (%s)\n    💰 %d bal\n\n",

	"gifts_header": "🎁 **Sowgatlar:**\n\n💰 Siziň balansiňyz: %d bal\n\n",
	"gifts_entry":  "%s %d bal → %d TMT\n",
	"gifts_footer": "\n📝 Sowgat almak üçin: `/gift <bal_miqdarı>`\nMysal: `/gift 30`",

	"gift_invalid_amount": "❌ Nädogry bal mukdary.",
	"gift_unknown_cost":   "❌ Bu bal mukdary üçin sowgat ýok.",
	"gift_insufficient":   "❌ Ýeterlik bal ýok. Siziň balansiňyz: %d bal",
	"gift_request_sent": "📝 Sowgat haýyşyňyz iberildi!\n\n🎁 Sowgat: %d TMT\n💰 Häzirki balans: %d bal\n\n" +
		"⏳ Admin tassyklamasyna garaşyň (iň köp %d sagat)\n🔔 Netije size habar beriler.",

	"approval_request": "🎁 **Täze sowgat haýyşy!**\n\n👤 Ulanyjy: @%s (ID: %d)\n" +
		"💰 Mukdar: %d TMT (%d bal)\n⏰ Wagty: %s\n\n" +
		"⚠️ %d sagat içinde jogap bermeseňiz, awtomatiki tasdyklanar.",
	"approval_approved_edit": "✅ **Tassyklanan sowgat**\n\n👤 @%s (ID: %d)\n💰 %d TMT\n⏰ Tassyklanan wagty: %s",
	"approval_rejected_edit": "❌ **Ýatyrlan sowgat**\n\n👤 @%s (ID: %d)\n💰 %d TMT\n⏰ Ýatyrlan wagty: %s",

	"gift_approved": "✅ **Sowgadyňyz tassyklandy!**\n\n🎁 %d TMT\n👤 Admin tarapyndan tassyklandy\n\n" +
		"📞 Indi size habarlaşarlar we sowgady bererler.",
	"gift_rejected": "❌ **Sowgat haýyşyňyz ýatyryldy**\n\n💰 %d bal gaýtaryldy\n📝 Täzeden synanyşyp bilersiňiz.",
	"gift_auto_approved": "✅ **Sowgadyňyz awtomatiki tassyklandy!**\n\n🎁 %d TMT\n⏰ %d sagat geçensoň awtomatiki tassyklandy\n\n" +
		"📞 Indi size habarlaşarlar we sowgady bererler.",
	"gift_conflict": "❌ Bu sowgat haýyşy eýýäm işlenýär ýa-da tapylmaýar.",

	"btn_approve":  "✅ Tasdykla",
	"btn_reject":   "❌ Ýatyr",
	"btn_userinfo": "👤 Ulanyjy maglumaty",

	"vvod_start":     "📝 VVOD rejimi açyldy.\n\nIndiki ýerden ýazjak hatyňyz adminski kanala iberiler.\nÝatyrmak üçin /cancel ýazyň.",
	"vvod_cancelled": "❌ VVOD rejimi ýatyryldy.",
	"vvod_sent":      "✅ Hatyňyz ugradyldy!",
	"vvod_forward":   "📝 VVOD @%s:\n\n%s",

	"admin_only": "❌ Bu buýruk diňe adminler üçin.",
	"admin_help": "🔧 **Admin Panel**\n\n" +
		"`/admin users` - Ulanyjylary görmek\n" +
		"`/admin logs` - Ref loglary görmek\n" +
		"`/admin stats` - Statistika görmek\n" +
		"`/admin setbal USER_ID BALANCE` - Bal bellemek\n\n" +
		"Mysal:\n`/admin setbal 123456789 100`",
	"admin_users_header": "👥 **Ähli ulanyjylar:**\n\n",
	"admin_users_entry":  "%d. @%s (%s)\n   💰 %d bal | ID: %d\n\n",
	"admin_users_more":   "... we ýene %d ulanyjy",
	"admin_no_users":     "❌ Ulanyjy tapylmady.",
	"admin_logs_header":  "📊 **Referral Loglar:**\n\n",
	"admin_logs_entry":   "%d. %s @%s → @%s\n   💰 +%d bal | 📅 %s\n\n",
	"admin_no_logs":      "❌ Ref log tapylmady.",
	"admin_stats":        "📈 **Statistika**\n\nJemi: %d\nSoňky 24 sagat: %d\nSoňky 7 gün: %d\nSoňky 30 gün: %d",
	"admin_setbal_ok":    "✅ User %d balansy %d bal edildi.",

	"userinfo": "👤 **Ulanyjy maglumaty:**\n\n🆔 ID: %d\n👤 Ady: %s\n🔗 Username: @%s\n" +
		"💰 Balans: %d bal\n👥 Çagyranlary: %d adam\n📅 Goşulan wagty: %s",

	"startup_admin": "🤖 Telegram Referral Bot başlatylyp!\n\n✅ Sistem aktiw\n🔗 Ref sistemi hazır\n🎁 Gift sistemi hazır\n📝 VVOD sistemi hazır",
}
