package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/karpella/ec2console/internal/tui/theme"
	"github.com/karpella/ec2console/internal/utils"
)

const detailLabelWidth = 12

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

// renderDetail renders the selected instance as labeled sections plus
// the latest health checks.
func (m Model) renderDetail() string {
	inst, ok := m.instanceByID(m.detail.id)
	if !ok {
		return theme.DashboardTitleStyle.Render("Instance details") + "\n\n" +
			errorStyle.Render(fmt.Sprintf("%s is no longer in this collection", m.detail.id)) + "\n" +
			helpStyle.Render("Esc back")
	}

	db := utils.NewDetailBuilder(detailLabelWidth, theme.MutedStyle)
	db.Section("Instance")
	db.Row("Name", orDash(inst.Name))
	db.Row("ID", inst.ID)
	db.Row("State", theme.RenderStatus(string(inst.State)))
	db.Row("Type", inst.Type)
	db.Row("Image", orDash(inst.ImageID))
	db.Row("Key pair", orDash(inst.KeyName))
	db.Row("Launched", utils.TimeOrDash(inst.LaunchedAt, utils.DateTime))
	db.Row("Age", utils.Age(inst.LaunchedAt, m.now()))
	db.Blank()

	db.Section("Network")
	db.Row("Zone", orDash(inst.Zone))
	db.Row("VPC", orDash(inst.VpcID))
	db.Row("Subnet", orDash(inst.SubnetID))
	db.Row("Public IP", orDash(inst.PublicIP))
	db.Row("Private IP", orDash(inst.PrivateIP))
	if len(inst.SecurityGroups) > 0 {
		groups := make([]string, len(inst.SecurityGroups))
		for i, sg := range inst.SecurityGroups {
			groups[i] = fmt.Sprintf("%s (%s)", sg.Name, sg.ID)
		}
		db.Row("Groups", strings.Join(groups, ", "))
	}
	db.Blank()

	db.Section("Health")
	switch {
	case m.detail.loading:
		db.Row("Checks", m.spinner.View()+" loading...")
	case m.detail.err != nil:
		db.Row("Checks", errorStyle.Render(m.detail.err.Error()))
	case len(m.detail.statuses) == 0:
		db.Row("Checks", metricLabelStyle.Render("no data"))
	default:
		st := m.detail.statuses[0]
		db.Row("System", theme.RenderStatus(orDash(st.SystemCheck)))
		db.Row("Instance", theme.RenderStatus(orDash(st.InstanceCheck)))
	}

	if len(inst.Tags) > 0 {
		db.Blank()
		db.Section("Tags")
		keys := make([]string, 0, len(inst.Tags))
		for k := range inst.Tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			db.Row(k, inst.Tags[k])
		}
	}

	return theme.DashboardTitleStyle.Render(inst.DisplayName()) + "\n\n" +
		db.String() + "\n" +
		helpStyle.Render("Esc back")
}
