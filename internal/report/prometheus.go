package report

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"da/internal/output"
)

// typeGauges are the per-type gauges of the exposition format.
type typeGauges struct {
	InDepth        *prometheus.GaugeVec
	Instability    *prometheus.GaugeVec
	Responsibility *prometheus.GaugeVec
	Workload       *prometheus.GaugeVec
	Types          *prometheus.GaugeVec
	Mode           *prometheus.GaugeVec
}

var typeLabels = []string{"package", "type", "simple_name"}

func newTypeGauges(reg prometheus.Registerer) *typeGauges {
	return &typeGauges{
		InDepth: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "da_type_in_depth",
				Help: "Number of supertypes above the type, the root excluded",
			},
			typeLabels,
		),
		Instability: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "da_type_instability",
				Help: "Providers of the type divided by the number of types in the package",
			},
			typeLabels,
		),
		Responsibility: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "da_type_responsibility",
				Help: "Summed client references to the type divided by the number of types in the package",
			},
			typeLabels,
		),
		Workload: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "da_type_workload",
				Help: "Declared methods of the type divided by the declared methods of the package",
			},
			typeLabels,
		),
		Types: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "da_package_types",
				Help: "Number of analyzed types in the package",
			},
			[]string{"package"},
		),
		Mode: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "da_package_interface_mode_info",
				Help: "Interface matching mode used for the analysis (always 1)",
			},
			[]string{"package", "mode"},
		),
	}
}

// renderPrometheus writes the report in the Prometheus text exposition format,
// suitable for a node_exporter textfile collector.
func renderPrometheus(w io.Writer, rep *Report, places int) error {
	reg := prometheus.NewRegistry()
	g := newTypeGauges(reg)

	g.Types.WithLabelValues(rep.Package).Set(float64(len(rep.Types)))
	if rep.InterfaceMode != "" {
		g.Mode.WithLabelValues(rep.Package, rep.InterfaceMode).Set(1)
	}
	for _, rec := range rep.Types {
		labels := []string{rep.Package, rec.Name, rec.SimpleName}
		g.InDepth.WithLabelValues(labels...).Set(float64(rec.InDepth))
		g.Instability.WithLabelValues(labels...).Set(output.RoundFloat(rec.Instability, places))
		g.Responsibility.WithLabelValues(labels...).Set(output.RoundFloat(rec.Responsibility, places))
		g.Workload.WithLabelValues(labels...).Set(output.RoundFloat(rec.Workload, places))
	}

	var families []*dto.MetricFamily
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
