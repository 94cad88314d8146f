package notify

// Post is the JSON body accepted by chat.postMessage and incoming webhooks
type Post struct {
	Channel     string       `json:"channel,omitempty"`
	Username    string       `json:"username,omitempty"`
	IconURL     string       `json:"icon_url,omitempty"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is a legacy Slack message attachment
type Attachment struct {
	Fallback   string   `json:"fallback,omitempty"`
	Color      string   `json:"color,omitempty"`
	Title      string   `json:"title,omitempty"`
	Text       string   `json:"text,omitempty"`
	Fields     []Field  `json:"fields,omitempty"`
	Actions    []Action `json:"actions,omitempty"`
	Footer     string   `json:"footer,omitempty"`
	FooterIcon string   `json:"footer_icon,omitempty"`
	Ts         int64    `json:"ts,omitempty"`
}

// Field is one title/value cell inside an attachment
type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// Action is a link button shown under an attachment
type Action struct {
	Type string `json:"type"`
	Text string `json:"text"`
	URL  string `json:"url"`
}

const (
	botUsername     = "SqlFirewallBot"
	botIconURL      = "https://dotnetfoundation.org/img/dot_bot.png"
	messageText     = "Azure SQL FW Auditor findings"
	webhookText     = "The below message contains a list of _Azure PAAS SQL servers_ that contain firewall rules *NOT* in the approved public IP space. \r\n \r\n"
	attachmentIntro = "*The following server(s) have firewall rules in place for public IP addresses that are not in the approved public IP space:* \r\n"
	fallbackText    = "Azure SQL PAAS Public Firewall Rules Alert"
	alertColor      = "#900c3F"
	footerText      = "SQL FW Validator"
	portalURL       = "https://portal.azure.com/#blade/HubsExtension/BrowseResource/resourceType/Microsoft.Sql%2Fservers"
)
