package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/Dosada05/tournament-bot/models"
	"github.com/Dosada05/tournament-bot/services"
)

const (
	dateFormat     = "02/01/2006"
	clockFormat    = "15:04"
	dateTimeFormat = "02/01/2006 15:04"
)

func welcomeMessage(firstName string) string {
	return fmt.Sprintf(`🚨 Oye %s! Tere jaise player ka welcome hai is killer lobby mein! 🔥

Yaha kill count bolta hai, aur noobs chup rehte hain! 😎

💸 Paisa nahi?
👉 Toh bhai referral bhej! Dost ko bula, aur FREE ENTRY kama!

#DumWalaSquad #ReferAurJeet`, firstName)
}

func mainMenuMessage(firstName, referralCode string) string {
	return fmt.Sprintf(`🔥 Lobby Access Granted! 🔥

Ab kya plan hai bhai %s?

Tera Personal Referral Code: `+"`%s`"+`
Dost ko bhej, aur FREE ENTRY pa!`, firstName, referralCode)
}

func adminDashboardMessage(now time.Time, active []models.Tournament) string {
	next := "No upcoming matches"
	if len(active) > 0 {
		if d := active[0].StartAt.Sub(now); d > 0 {
			next = fmt.Sprintf("%d minutes", int(d.Minutes()))
		}
	}
	return fmt.Sprintf(`👑 **Welcome, Boss!**

🕐 **Login Time:** `+"`%s`"+`
📢 **Live Tournaments:** `+"`%d`"+`
📈 **Next Match In:** `+"`%s`"+`

🛠 **ADMIN PANEL:**
/createtournament - 🎯 New tournament
/sendroom - 📤 Send room details
/confirm - ✅ Approve players
/listplayers - 📋 Participant list
/status - 🔄 Change tournament status
/declarewinners - 🏆 Announce winners
/today - 📅 Today's collection
/thisweek - 📈 Weekly collection
/thismonth - 📊 Monthly collection
/squad - 👑 Squad victory
/duo - 🔥 Duo victory
/solo - 🧍 Solo victory
/special - 💥 Custom notifications`, now.Format(dateTimeFormat), len(active), next)
}

const helpMessage = `📜 **HELP & SUPPORT**

🎮 **BOT COMMANDS:**
• /start - Main menu access
• /tournaments - Active tournaments
• /join <id> - Join a tournament
• /paid <UTR> - Submit payment proof
• /referrals - Check your referrals
• /matchhistory - View match history
• /cancel - Stop the current step
• /help - Show this help menu

💰 **PAYMENT PROCESS:**
1. Join tournament
2. Pay entry fee to the UPI id shown
3. Use /paid command with UTR number
4. Wait for admin confirmation

🎯 **TOURNAMENT JOINING:**
1. Check active tournaments
2. Click "Join"
3. Complete payment
4. Wait for room details
5. Join room and play!`

const noActiveTournamentsMessage = `❌ **No Active Tournaments**

Abhi koi tournament live nahi hai bhai!

🔔 Tournament announcements daily, stay tuned.`

func activeTournamentsMessage(tournaments []models.Tournament, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("🎮 **ACTIVE TOURNAMENTS**\n\n")
	for i, t := range tournaments {
		start := t.StartAt.In(loc)
		fmt.Fprintf(&b, "**%d. %s** (#%d)\n%s | 📅 %s | 🕘 %s\n📍 %s | 💰 ₹%d\n👥 Joined: %d | 🏆 Prize Pool: ₹%d\n\n",
			i+1, t.Name, t.ID, t.Mode.Label(), start.Format(dateFormat), start.Format(clockFormat),
			t.Map, t.EntryFee, len(t.Participants), t.PrizePool())
	}
	return strings.TrimRight(b.String(), "\n")
}

func joinedMessage(t *models.Tournament, u *models.User) string {
	return fmt.Sprintf(`✅ **Successfully Joined!**

🎮 **Tournament:** %s
👨‍💼 **Player:** %s
🆔 **Player ID:** %d

📋 **Next Steps:**
1. 💰 Pay entry fee: ₹%d
2. 📝 Use /paid command with UTR
3. ⌛ Wait for confirmation
4. 🎮 Receive room details`, t.Name, u.DisplayName(), u.ID, t.EntryFee)
}

func paymentInstructions(t *models.Tournament, upiID string, now time.Time) string {
	hours := int(t.StartAt.Sub(now).Hours())
	return fmt.Sprintf(`💰 **PAYMENT INSTRUCTIONS**

🏆 **Tournament:** %s
💸 **Entry Fee:** ₹%d

📱 **UPI Payment Details:**
🆔 **UPI ID:** `+"`%s`"+`
💵 **Amount:** ₹%d

📋 **Payment Steps:**
1. 📱 Open any UPI app (PhonePe, GPay, Paytm)
2. 💰 Send ₹%d to the UPI id above
3. 🔢 Copy UTR/Transaction ID from the confirmation
4. 📝 Send the UTR here
5. ⌛ Wait for admin confirmation

🕘 **Payment Deadline:** %d hours remaining`, t.Name, t.EntryFee, upiID, t.EntryFee, t.EntryFee, max(hours, 0))
}

func paymentSubmittedMessage(p *models.Payment, tournamentName string, u *models.User, loc *time.Location) string {
	if tournamentName == "" {
		tournamentName = "—"
	}
	return fmt.Sprintf(`✅ **Payment Submitted Successfully!**

🎮 **Tournament:** %s
👨‍💼 **Player:** %s
🔢 **UTR Number:** `+"`%s`"+`
💰 **Amount:** ₹%d
🕘 **Submitted:** %s

⏳ **Status:** Pending Admin Verification`,
		tournamentName, u.DisplayName(), p.UTR, p.Amount, p.SubmittedAt.In(loc).Format(dateTimeFormat))
}

func adminPaymentNotification(p *models.Payment, tournamentName string, u *models.User, loc *time.Location) string {
	if tournamentName == "" {
		tournamentName = "—"
	}
	return fmt.Sprintf(`💰 **NEW PAYMENT RECEIVED**

👨‍💼 **Player:** %s
🆔 **User ID:** %d
🎮 **Tournament:** %s
💵 **Amount:** ₹%d
🔢 **UTR:** `+"`%s`"+`
🕘 **Time:** %s

Use: `+"`/confirm %s`"+` to approve`,
		u.DisplayName(), u.ID, tournamentName, p.Amount, p.UTR, p.SubmittedAt.In(loc).Format(dateTimeFormat), u.DisplayName())
}

const paymentConfirmedMessage = `✅ **Payment Confirmed!**

Your payment has been verified. You'll receive room details before the tournament starts.

🔥 Get ready to dominate!`

func referralBonusMessage(reward int64) string {
	return fmt.Sprintf("🎁 **Referral Bonus!**\n\nYour friend's first payment was confirmed. ₹%d has been added to your balance.", reward)
}

func referralStatsMessage(stats *models.ReferralStats, names map[int64]string, code string, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, `📊 **YOUR REFERRAL STATS**

👥 **Total Referrals:** %d
✅ **Rewarded Referrals:** %d
💰 **Total Bonus Earned:** ₹%d
🎁 **Free Entries Available:** %d

📈 **Recent Referrals:**`, stats.Total, stats.Granted, stats.Bonus, stats.FreeEntries)

	if len(stats.Recent) == 0 {
		b.WriteString("\n❌ No referrals yet!")
	}
	for i, r := range stats.Recent {
		name, ok := names[r.ReferredID]
		if !ok {
			name = "User"
		}
		fmt.Fprintf(&b, "\n%d. %s - %s", i+1, name, r.CreatedAt.In(loc).Format(dateFormat))
	}

	fmt.Fprintf(&b, `

🎯 **EARN MORE:**
• Share your referral code: `+"`%s`"+`
• Get a bonus for every friend whose first payment is confirmed`, code)
	return b.String()
}

func statusEmoji(s models.TournamentStatus) string {
	switch s {
	case models.StatusUpcoming:
		return "⏳"
	case models.StatusLive:
		return "🔴"
	case models.StatusCompleted:
		return "✅"
	case models.StatusCancelled:
		return "❌"
	default:
		return "❓"
	}
}

func matchHistoryMessage(u *models.User, tournaments []models.Tournament, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📜 **YOUR MATCH HISTORY**\n\n👨‍💼 Player: %s\n🎮 Total Matches: %d\n\n📈 **Recent Tournaments:**", u.DisplayName(), len(tournaments))
	if len(tournaments) == 0 {
		b.WriteString("\n❌ No matches played yet!")
	}
	for i, t := range tournaments {
		fmt.Fprintf(&b, "\n%d. %s %s - %s", i+1, statusEmoji(t.Status), t.Name, t.StartAt.In(loc).Format(dateFormat))
	}
	return b.String()
}

func participantsMessage(t *models.Tournament, users []models.User) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 **%s - Participants**\n\n", t.Name)
	confirmed := 0
	for i, u := range users {
		mark := "⏳"
		if u.Confirmed {
			mark = "✅"
			confirmed++
		}
		fmt.Fprintf(&b, "%d. %s %s\n", i+1, u.DisplayName(), mark)
	}
	fmt.Fprintf(&b, "\n📊 **Summary:**\n✅ Confirmed: %d\n⏳ Pending: %d\n📝 Total: %d\n💰 Prize Pool: ₹%d",
		confirmed, len(users)-confirmed, len(users), t.PrizePool())
	return b.String()
}

func reportMessage(r *models.Report) string {
	switch r.Period {
	case models.PeriodWeek:
		performance := "💪 Good progress!"
		if r.TotalAmount > 5000 {
			performance = "🔥 Excellent!"
		}
		return fmt.Sprintf(`📈 **This Week's Collection**

💰 **Total Amount:** ₹%d
📊 **Total Payments:** %d
💵 **Daily Average:** ₹%d

📊 **Week Performance:** %s`, r.TotalAmount, r.TotalPayments, r.DailyAverage(), performance)
	case models.PeriodMonth:
		target := "🎊 Target achieved!"
		if r.TotalAmount <= services.MonthlyTarget {
			target = fmt.Sprintf("₹%d to go!", services.MonthlyTarget-r.TotalAmount)
		}
		return fmt.Sprintf(`📊 **%s Collection**

💰 **Total Amount:** ₹%d
📊 **Total Payments:** %d
💵 **Daily Average:** ₹%d

🎯 **Monthly Target:** %s`, r.Anchor.Format("January 2006"), r.TotalAmount, r.TotalPayments, r.DailyAverage(), target)
	default:
		return fmt.Sprintf(`📅 **Today's Collection (%s)**

💰 **Total Amount:** ₹%d
📊 **Total Payments:** %d
💵 **Average per Payment:** ₹%d

🔥 **Boss, paisa aa raha hai!**`, r.From.Format(dateFormat), r.TotalAmount, r.TotalPayments, r.Average())
	}
}

func statusChangedMessage(t *models.Tournament) string {
	switch t.Status {
	case models.StatusLive:
		return fmt.Sprintf("🔴 **%s is LIVE!**\n\nCheck your room details and join now. All the best, warriors!", t.Name)
	case models.StatusCompleted:
		return fmt.Sprintf("✅ **%s has finished.**\n\nThanks for playing! Results will be announced soon.", t.Name)
	case models.StatusCancelled:
		return fmt.Sprintf("❌ **%s has been cancelled.**\n\nContact the admin about your entry fee.", t.Name)
	default:
		return fmt.Sprintf("ℹ️ %s is now %s.", t.Name, t.Status)
	}
}
