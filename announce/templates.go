package announce

import (
	"strings"
	"text/template"
)

var funcs = template.FuncMap{
	"mention":  mention,
	"mentions": mentions,
}

func mention(name string) string {
	return "@" + strings.TrimPrefix(name, "@")
}

func mentions(names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = mention(n)
	}
	return strings.Join(out, " ")
}

var templates = template.Must(template.New("announce").Funcs(funcs).Parse(`
{{define "tournament_post"}}🎮 **TOURNAMENT ALERT**

🏆 {{.Name}}
🎯 Type: {{.Mode}}
📅 Date: {{.Date}}
🕘 Time: {{.Time}}
📍 Map: {{.Map}}
💰 Entry Fee: ₹{{.EntryFee}}
🎁 Prize: {{.Prize}}{{if .PrizeDetails}}
📝 {{.PrizeDetails}}{{end}}

👇 Click to Join{{end}}

{{define "tournament_announcement"}}🎮 **{{.Name}}** 🎮

{{.Mode}} **Tournament Alert!**
📍 Map: {{.Map}}
💰 Entry: ₹{{.EntryFee}}
🏆 Big prizes waiting!

Join karo aur domination dikhao! 🔥

#DumWalaSquad #BGMITournament{{end}}

{{define "room_details"}}🎮 **ROOM DETAILS - {{.Name}}**

🏠 **Room ID:** ` + "`{{.RoomID}}`" + `
🔑 **Password:** ` + "`{{.Password}}`" + `

📅 **Tournament:** {{.Name}}
🕘 **Time:** {{.Time}}
📍 **Map:** {{.Map}}

⚠️ **IMPORTANT:**
• Join 5 minutes before start time
• Screenshot your game ID before match
• No late entries allowed
• Follow all tournament rules

🔥 **All the best, warriors!**
#DumWalaSquad{{end}}

{{define "solo_winner"}}{{.Headline}}

🎯 Player: {{mention .Player}}
💀 Kills: {{.Kills}} | 🎯 Damage: {{.Damage}}
👑 Victory: ❶

#DumWalaSolo #LobbyCleaner{{end}}

{{define "duo_winner"}}{{.Headline}}

🎯 Players: {{mentions .Players}}
💀 Kills: {{.Kills}} | 💣 Damage: {{.Damage}}
👑 Victory Rank: ❶

#DumWaleDuo #KhatarnakJodi{{end}}

{{define "squad_winner"}}{{.Headline}}

🧨 Winning Squad: Team Champions
🎯 Players: {{mentions .Players}}
💀 Total Kills: {{.Kills}} | 💣 Damage: {{.Damage}}
🚁 Victory: ❶

#DumWalaSquad #SquadGoals{{end}}

{{define "special"}}🔥 {{.}} 🔥

#DumWalaSquad #BGMITournament{{end}}
`))

var soloHeadlines = []string{
	"🔥 Bhai %s ne lobby mein aag laga di!",
	"💀 %s - The Ultimate Kill Machine!",
	"👑 %s ne sabko school kar diya!",
	"⚡ %s ka domination shuru!",
	"🎯 %s - Lobby ka Badshah!",
}

var duoHeadlines = []string{
	"🔥 %s ki deadly combination!",
	"👥 %s - Unstoppable Duo!",
	"💪 %s ne teamwork dikhaya!",
	"⚡ %s ka perfect sync!",
	"🎯 %s - Dynamic Destroyers!",
}

var squadHeadlines = []string{
	"🔥 %s ka squad domination!",
	"💪 %s ne squad goals achieve kiye!",
	"⚡ %s ka perfect coordination!",
	"🎯 %s - Champion Squad!",
}
