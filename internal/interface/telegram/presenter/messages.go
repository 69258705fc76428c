package presenter

import (
	"fmt"
	"strings"
	"time"

	"github.com/classhub/classbot/internal/application/query"
	"github.com/classhub/classbot/internal/domain/homework"
	"github.com/classhub/classbot/internal/domain/roster"
	"github.com/classhub/classbot/internal/domain/schedule"
	"github.com/classhub/classbot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// FIXED TEXTS
// ══════════════════════════════════════════════════════════════════════════════

// General.
const (
	MsgMenuOpened     = "Меню открыто 👇"
	MsgCancelled      = "Отменено ✅"
	MsgAck            = "Ок."
	MsgUnknownInput   = "Не понял кнопку/сообщение. Попробуй /help"
	MsgAdminsOnly     = "Только для админов."
	MsgAdminCommand   = "Эта команда только для админов."
	MsgInternalError  = "😔 Произошла ошибка. Попробуй позже."
	MsgScheduleHint   = "Напиши: /r пн (или /r mon) — либо просто /r для ПН-ПТ."
	MsgHomeworkHint   = "Напиши: /dz_list 10 или /dz 25.01 или /dz завтра"
	MsgDone           = "Готово ✅"
	MsgRateLimited    = "⏳ Слишком много запросов!\nПопробуй через %d секунд."
	MsgChatIDInvalid  = "Не похоже на chat_id. Пример: -1001234567890"
	MsgNoBroadcastTgt = "Сначала укажи чат через меню: «➕ Добавить чат»."
)

// Schedule.
const (
	MsgScheduleDayMissing = "⚠️ Не нашёл такой день. Пример: /r пн"
	MsgScheduleSaved      = "Расписание сохранено ✅"
	scheduleFooter        = "🔄 <i>'//' — чередование</i>\n<i>'**' — подгруппы</i>"
)

// Homework.
const (
	MsgHomeworkUsage     = "Формат: /dz 25.01 | /dz завтра | /dz 25 января"
	MsgHomeworkBadDate   = "Не понял дату. Пример: /dz 25.01"
	MsgHomeworkListUsage = "Формат: /dz_list [N], пример: /dz_list 10"
	MsgHomeworkListEmpty = "Ближайшей домашки нет 🎉"
	MsgHomeworkEditUsage = "Формат: /dz_edit 25.01 новый текст"
	MsgHomeworkEditEmpty = "Новый текст пустой."
	MsgHomeworkDelUsage  = "Формат: /dz_del 25.01"
	MsgHomeworkNoEntry   = "На эту дату домашки нет."
	homeworkListHeader   = "🧾 Ближайшая домашка:"
)

// Jokes.
const (
	MsgJokesEmpty     = "Анекдотов пока нет 😢\nДобавить можно через меню в ЛС: «😂 Добавить анекдот»."
	MsgJokeAddPrivate = "Добавлять анекдоты можно в ЛС с ботом."
	MsgJokeAddPrompt  = "Ок! Пришли текст анекдота одним сообщением.\nОтмена: /cancel"
	MsgJokeMenuPrompt = "Пришли текст анекдота одним сообщением.\nОтмена: /cancel"
	MsgJokeAdded      = "Добавил ✅"
)

// Broadcast.
const (
	MsgBroadcastUsage   = "Формат: /s <сообщение в HTML>\nПример: /s <b>Привет</b>\\nВторая строка"
	MsgBroadcastSent    = "Отправлено ✅"
	MsgTestSent         = "Ок ✅"
	MsgChatIDPrompt     = "Пришли chat_id (пример: -1001234567890)."
	MsgPhotoPrivateOnly = "Команда /si работает в ЛС (чтобы не засорять чат)."
	MsgPhotoAskTarget   = "Сначала пришли chat_id (например: -1001234567890)."
	MsgPhotoAskPhoto    = "Ок. Теперь пришли одно фото."
	MsgPhotoWrongInput  = "Нужно фото одним сообщением 📷. Пришли фото (не файл), или /cancel."
	MsgPhotoAccepted    = "Фото принято ✅ Теперь пришли текст (отдельным сообщением)."
	MsgCaptionWrongType = "Теперь нужен текст одним сообщением 📝. Пришли текст, или /cancel."
	MsgPhotoSent        = "Отправил фото+текст ✅"
	MsgPhotoSendFailed  = "Не удалось отправить фото 😔 Попробуй ещё раз: /si"
)

// Admins and roster.
const (
	MsgAdminPrompt     = "Пришли @username администратора."
	MsgAdminBadHandle  = "Нужно @username. Пример: @myadmin"
	MsgStudentsPrompt  = "Ок! Присылай учеников по одному: @username\nКогда закончишь — напиши: end / все / стоп"
	MsgStudentsInvalid = "Не понял. Присылай @username или end/все/стоп"
	MsgRosterUsage     = "Форматы:\n/d_set list\n/d_set add <@user>\n/d_set remove <@user>\n/d_set set <@u1; @u2; @u3>"
	MsgRosterEmpty     = "Список пуст."
	MsgRosterAddUsage  = "Формат: /d_set add @username"
	MsgRosterDelUsage  = "Формат: /d_set remove @username"
	MsgRosterNotFound  = "Не нашёл такого пользователя в списке."
	MsgRosterRemoved   = "Удалил ✅"
	MsgRosterSetEmpty  = "Пусто. Пример: /d_set set @a; @b; @c"
	MsgRosterUnknown   = "Неизвестная подкоманда. Используй list/add/remove/set"
)

// ══════════════════════════════════════════════════════════════════════════════
// FORMATTERS
// ══════════════════════════════════════════════════════════════════════════════

// Start renders the /start greeting.
func Start(ttlDays int) string {
	return "Привет! Я бот для расписания/домашки/дежурств 😼\n" +
		fmt.Sprintf("🧹 Домашка авто-удаляется через %d дней ОТ ДАТЫ ЗАДАНИЯ.\n\n", ttlDays) +
		"В ЛС со мной можно пользоваться командами, не засоряя общий чат.\n" +
		"Открой меню кнопками ниже 👇"
}

// Help renders the command list. It is sent as plain text.
func Help(ttlDays int) string {
	var b strings.Builder
	b.WriteString("Команды:\n\n")
	b.WriteString("📅 /r [день] — расписание (пример: /r пн)\n")
	b.WriteString("🧹 /d — дежурный сегодня\n\n")
	b.WriteString("📚 /dz <дата> — показать\n")
	b.WriteString("✍️ /dz <дата> <текст> — сохранить\n")
	b.WriteString("🧾 /dz_list [N] — ближайшие N (по умолчанию 10)\n")
	b.WriteString("🛠 /dz_edit <дата> <текст> — (админы)\n")
	b.WriteString("🗑 /dz_del <дата> — удалить (админы)\n\n")
	fmt.Fprintf(&b, "🧹 TTL: %d дней ОТ ДАТЫ ЗАДАНИЯ\n\n", ttlDays)
	b.WriteString("Форматирование при отправке в чат (для админов):\n")
	b.WriteString("• Используй HTML-теги: <b>жирный</b>, <i>курсив</i>, <u>подчёрк</u>\n")
	b.WriteString("• Перенос строки — обычный Enter или напиши \\n\n\n")
	b.WriteString("Админ-команды:\n")
	b.WriteString("• /s <html-текст> — отправить в основной чат\n")
	b.WriteString("• /si — отправить картинку + текст в основной чат\n")
	b.WriteString("• /test — тестовое сообщение в основной чат\n")
	b.WriteString("• /d_set ... — управление списком дежурных\n")
	b.WriteString("• /joke — случайный анекдот\n")
	b.WriteString("• /joke_add — добавить анекдот\n")
	b.WriteString("• /cancel — отменить текущий диалог\n")
	return b.String()
}

// ScheduleDay renders one day of the schedule.
func ScheduleDay(key, text string) string {
	return fmt.Sprintf("📅 <b>Расписание (%s):</b>\n%s\n\n%s", key, text, scheduleFooter)
}

// ScheduleWeek renders Monday to Friday.
func ScheduleWeek(days []schedule.Day) string {
	parts := make([]string, 0, len(days)+2)
	parts = append(parts, "📅 <b>Расписание (Пн–Пт):</b>")
	for _, d := range days {
		parts = append(parts, fmt.Sprintf("\n<b>%s:</b>\n%s", d.Name, d.Text))
	}
	parts = append(parts, "\n\n"+scheduleFooter)
	return strings.Join(parts, "\n")
}

// ScheduleStepPrompt asks for the schedule of the canonical day at step.
func ScheduleStepPrompt(step int) string {
	if step == 0 {
		return fmt.Sprintf("Введи расписание на %s (одним сообщением).", schedule.CanonicalDays[0])
	}
	return fmt.Sprintf("Теперь введи расписание на %s:", schedule.CanonicalDays[step])
}

// HomeworkSaved confirms a stored task.
func HomeworkSaved(date, expiry time.Time) string {
	return fmt.Sprintf("Сохранил на %s ✅\n🧹 Удалится после %s",
		timeutil.FormatRussian(date), timeutil.FormatRussian(expiry))
}

// HomeworkShow renders the task for a date, or the hint to add one.
func HomeworkShow(res *query.GetHomeworkResult) string {
	day := timeutil.FormatRussian(res.Date)
	exp := timeutil.FormatRussian(res.Expiry)
	if res.Found && res.Task != "" {
		return fmt.Sprintf("Домашка на %s:\n%s\n\n🧹 Удалится после %s", day, homework.Expand(res.Task), exp)
	}
	return fmt.Sprintf("На %s домашки нет.\nДобавить: /dz %s <текст>\n🧹 Если добавить — удалится после %s",
		day, res.Date.Format("02.01"), exp)
}

// HomeworkList renders the upcoming list.
func HomeworkList(items []query.ListedHomework) string {
	if len(items) == 0 {
		return MsgHomeworkListEmpty
	}
	lines := make([]string, 0, len(items)+1)
	lines = append(lines, homeworkListHeader)
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("• %s (до %s): %s",
			timeutil.FormatRussian(it.Date), timeutil.FormatRussian(it.Expiry), it.Preview))
	}
	return strings.Join(lines, "\n")
}

// HomeworkDeleted confirms a deletion.
func HomeworkDeleted(date time.Time) string {
	return fmt.Sprintf("Удалил домашку на %s ✅", timeutil.FormatRussian(date))
}

// RosterList renders the numbered duty list.
func RosterList(r roster.Roster) string {
	if len(r) == 0 {
		return MsgRosterEmpty
	}
	lines := make([]string, 0, len(r))
	for i, e := range r {
		lines = append(lines, fmt.Sprintf("%d) %s", i+1, e))
	}
	return "Дежурные:\n" + strings.Join(lines, "\n")
}

// RosterAdded confirms /d_set add.
func RosterAdded(entry string) string {
	return "Добавил ✅ " + entry
}

// RosterReplaced confirms /d_set set.
func RosterReplaced(n int) string {
	return fmt.Sprintf("Список обновлён ✅ (%d чел.)", n)
}

// StudentAdded confirms one onboarding step.
func StudentAdded(entry string) string {
	return fmt.Sprintf("Добавил: %s\nСледующий? (или end/все/стоп)", entry)
}

// StudentsDone closes the onboarding loop.
func StudentsDone(added int) string {
	return fmt.Sprintf("Готово ✅ Добавлено: %d", added)
}

// AdminAdded confirms a new admin.
func AdminAdded(tag string) string {
	return "Админ добавлен ✅ " + tag
}

// BroadcastTargetSaved confirms the configured chat.
func BroadcastTargetSaved(chatID int64) string {
	return fmt.Sprintf("Сохранено ✅ chat_id = %d", chatID)
}

// PhotoTargetKnown tells the admin which chat /si will post to.
func PhotoTargetKnown(chatID int64) string {
	return fmt.Sprintf("Ок. Основной чат уже задан: %d\nПришли одно фото.", chatID)
}

// RateLimited tells the user to slow down.
func RateLimited(wait time.Duration) string {
	return fmt.Sprintf(MsgRateLimited, int(wait.Seconds()))
}
