package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/factura/internal/audit"
	auditdomain "github.com/smallbiznis/factura/internal/audit/domain"
	"github.com/smallbiznis/factura/internal/client"
	clientdomain "github.com/smallbiznis/factura/internal/client/domain"
	"github.com/smallbiznis/factura/internal/config"
	"github.com/smallbiznis/factura/internal/invoice"
	invoicedomain "github.com/smallbiznis/factura/internal/invoice/domain"
	"github.com/smallbiznis/factura/internal/observability"
	obsmiddleware "github.com/smallbiznis/factura/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/factura/internal/observability/metrics"
	obstracing "github.com/smallbiznis/factura/internal/observability/tracing"
	"github.com/smallbiznis/factura/internal/payment"
	paymentdomain "github.com/smallbiznis/factura/internal/payment/domain"
	"github.com/smallbiznis/factura/internal/project"
	projectdomain "github.com/smallbiznis/factura/internal/project/domain"
	"github.com/smallbiznis/factura/internal/providers/pdf"
	"github.com/smallbiznis/factura/internal/recurring"
	recurringdomain "github.com/smallbiznis/factura/internal/recurring/domain"
	"github.com/smallbiznis/factura/internal/reporting"
	reportingdomain "github.com/smallbiznis/factura/internal/reporting/domain"
	"github.com/smallbiznis/factura/internal/settings"
	settingsdomain "github.com/smallbiznis/factura/internal/settings/domain"
	"github.com/smallbiznis/factura/internal/template"
	templatedomain "github.com/smallbiznis/factura/internal/template/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	audit.Module,
	client.Module,
	settings.Module,
	template.Module,
	invoice.Module,
	payment.Module,
	recurring.Module,
	project.Module,
	reporting.Module,
	pdf.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	clientSvc    clientdomain.Service
	invoiceSvc   invoicedomain.Service
	paymentSvc   paymentdomain.Service
	templateSvc  templatedomain.Service
	recurringSvc recurringdomain.Service
	projectSvc   projectdomain.Service
	settingsSvc  settingsdomain.Service
	reportingSvc reportingdomain.Service
	auditSvc     auditdomain.Service
	pdfSvc       *pdf.Service
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	ClientSvc    clientdomain.Service
	InvoiceSvc   invoicedomain.Service
	PaymentSvc   paymentdomain.Service
	TemplateSvc  templatedomain.Service
	RecurringSvc recurringdomain.Service
	ProjectSvc   projectdomain.Service
	SettingsSvc  settingsdomain.Service
	ReportingSvc reportingdomain.Service
	AuditSvc     auditdomain.Service
	PDFSvc       *pdf.Service
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		clientSvc:    p.ClientSvc,
		invoiceSvc:   p.InvoiceSvc,
		paymentSvc:   p.PaymentSvc,
		templateSvc:  p.TemplateSvc,
		recurringSvc: p.RecurringSvc,
		projectSvc:   p.ProjectSvc,
		settingsSvc:  p.SettingsSvc,
		reportingSvc: p.ReportingSvc,
		auditSvc:     p.AuditSvc,
		pdfSvc:       p.PDFSvc,
	}
}

func registerRoutes(s *Server) {
	s.RegisterAPIRoutes()
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Clients --------
	api.GET("/clients", s.ListClients)
	api.POST("/clients", s.CreateClient)
	api.GET("/clients/:id", s.GetClientByID)
	api.PATCH("/clients/:id", s.UpdateClient)
	api.DELETE("/clients/:id", s.DeleteClient)

	// -------- Invoices --------
	api.GET("/invoices", s.ListInvoices)
	api.POST("/invoices", s.CreateInvoice)
	api.GET("/invoices/:id", s.GetInvoiceByID)
	api.PATCH("/invoices/:id", s.UpdateInvoice)
	api.DELETE("/invoices/:id", s.DeleteInvoice)
	api.POST("/invoices/:id/send", s.SendInvoice)
	api.POST("/invoices/:id/cancel", s.CancelInvoice)
	api.POST("/invoices/:id/mark-paid", s.MarkInvoicePaid)
	api.POST("/invoices/:id/reconcile", s.ReconcileInvoice)
	api.GET("/invoices/:id/pdf", s.RenderInvoicePDF)

	// -------- Payments --------
	api.GET("/invoices/:id/payments", s.ListInvoicePayments)
	api.POST("/invoices/:id/payments", s.ApplyPayment)
	api.GET("/payments/:id", s.GetPaymentByID)
	api.PATCH("/payments/:id", s.UpdatePayment)
	api.DELETE("/payments/:id", s.RemovePayment)

	// -------- Templates --------
	api.GET("/templates", s.ListTemplates)
	api.POST("/templates", s.CreateTemplate)
	api.GET("/templates/:id", s.GetTemplateByID)
	api.PATCH("/templates/:id", s.UpdateTemplate)
	api.DELETE("/templates/:id", s.DeleteTemplate)

	// -------- Recurring Schedules --------
	api.GET("/recurring-schedules", s.ListSchedules)
	api.POST("/recurring-schedules", s.CreateSchedule)
	api.GET("/recurring-schedules/:id", s.GetScheduleByID)
	api.PATCH("/recurring-schedules/:id", s.UpdateSchedule)
	api.DELETE("/recurring-schedules/:id", s.DeleteSchedule)
	api.POST("/scheduler/run", s.RunSchedules)

	// -------- Projects --------
	api.GET("/projects", s.ListProjects)
	api.POST("/projects", s.CreateProject)
	api.GET("/projects/:id", s.GetProjectByID)
	api.PATCH("/projects/:id", s.UpdateProject)
	api.DELETE("/projects/:id", s.DeleteProject)
	api.GET("/projects/:id/summary", s.GetProjectSummary)
	api.POST("/projects/:id/attach-time", s.AttachTimeToInvoice)

	api.GET("/projects/:id/tasks", s.ListTasks)
	api.POST("/projects/:id/tasks", s.CreateTask)
	api.PATCH("/tasks/:id", s.UpdateTask)
	api.DELETE("/tasks/:id", s.DeleteTask)

	api.GET("/projects/:id/time-entries", s.ListTimeEntries)
	api.POST("/projects/:id/time-entries", s.CreateTimeEntry)
	api.PATCH("/time-entries/:id", s.UpdateTimeEntry)
	api.DELETE("/time-entries/:id", s.DeleteTimeEntry)

	// -------- Settings --------
	api.GET("/settings/company", s.GetCompanySettings)
	api.PATCH("/settings/company", s.UpdateCompanySettings)
	api.GET("/settings/app", s.GetAppSettings)
	api.PATCH("/settings/app", s.UpdateAppSettings)

	// -------- Reports --------
	api.GET("/reports/dashboard", s.GetDashboard)
	api.GET("/reports/revenue", s.GetRevenueReport)
	api.GET("/reports/clients", s.GetClientTotals)
	api.GET("/reports/status", s.GetStatusBreakdown)
	api.GET("/reports/aging", s.GetAgingReport)

	// -------- Activity --------
	api.GET("/activity-logs", s.ListActivityLogs)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
