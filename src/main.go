package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"path"
	"regexp"
	"strconv"
	"ticketflow/src/db"
	"ticketflow/src/lib"
	"ticketflow/src/lifecycle"
	"ticketflow/src/middlewares"
	"ticketflow/src/models"
	"ticketflow/src/monitoring"
	"ticketflow/src/notify"
	"ticketflow/src/store"
	"ticketflow/src/types"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v4"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var jwtKey = []byte(os.Getenv("JWT_SECRET"))

var phoneRegexp = regexp.MustCompile(`^[0-9]{8,15}$`)
var nationalIdRegexp = regexp.MustCompile(`^[0-9]{7,8}$`)

var phoneValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	value, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return phoneRegexp.MatchString(value)
}

var nationalIdValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	value, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return nationalIdRegexp.MatchString(value)
}

func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("phonenumber", phoneValidatorFunc)
		v.RegisterValidation("nationalid", nationalIdValidatorFunc)
	}
}

func setupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(middlewares.SecureHeaders)
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})
	return router
}

func maintenanceModeMiddleware(g *gin.Engine) *gin.Engine {
	g.Use(func(ctx *gin.Context) {
		mm := os.Getenv("MAINTENANCE_MODE")
		atoi, err := strconv.ParseBool(mm)
		if err == nil && atoi {
			err := errors.New("server is under maintenance")
			log.Println(err.Error())
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, err.Error())
			return
		}
	})
	return g
}

func apiv1Group(g *gin.Engine) *gin.RouterGroup {
	return g.Group("/api/v1")
}

var ticketEngine *lifecycle.Engine

func getEngine() *lifecycle.Engine {
	if ticketEngine != nil {
		return ticketEngine
	}
	tickets := store.NewTicketStore(db.GetDb())
	ticketEngine = lifecycle.NewEngine(tickets, notify.New(tickets))
	return ticketEngine
}

// newEngine Replace engine instance with custom implementation
func newEngine(e *lifecycle.Engine) {
	ticketEngine = e
}

func generateJWT(username string) (string, error) {
	claims := types.Claims{
		Username: username,
		Role:     "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	return token.SignedString(jwtKey)
}

// startStatsJob keeps the stock gauge current and leaves a periodic trace
// of the lifecycle counts in the logs. Pending tickets never expire, so
// the pending count here is the operator's only view of that backlog.
func startStatsJob() {
	d := db.GetDb()
	tickets := store.NewTicketStore(d)
	stock := store.NewStockStore(d)
	_, err := lib.CreateCronJob(func() {
		ctx := context.Background()
		st, err := stock.Get(ctx)
		if err != nil {
			log.Printf("[stats] error reading stock: %s\n", err.Error())
			return
		}
		monitoring.SetStockRemaining(st.Remaining)
		pending, _ := tickets.CountByStatus(ctx, types.TICKET_PENDING)
		used, _ := tickets.CountUsed(ctx)
		sales, err := tickets.TotalSales(ctx)
		if err != nil {
			log.Printf("[stats] error reading sales: %s\n", err.Error())
			return
		}
		log.Printf("[stats] stock %d/%d, pending %d, paid %d, used %d, revenue %s\n",
			st.Remaining, st.Total, pending, sales.Count, used, sales.TotalRevenue.StringFixed(0))
	}, time.Minute)
	if err != nil {
		log.Printf("Error scheduling stats job: %s\n", err.Error())
		return
	}
	sched, err := lib.GetScheduler()
	if err != nil {
		return
	}
	sched.Start()
}

func main() {
	apiEnv := os.Getenv("API_ENV")
	if apiEnv == "local" {
		cwd, _ := os.Getwd()
		if err := godotenv.Load(path.Join(cwd, ".env")); err != nil {
			log.Printf("No .env file loaded: %s\n", err.Error())
		}
	}

	d := db.GetDb()
	if err := d.AutoMigrate(&models.Ticket{}, &models.EventStock{}); err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}
	stock, err := store.NewStockStore(d).EnsureDefaults(context.Background())
	if err != nil {
		log.Fatalf("error seeding stock: %s", err.Error())
	}
	log.Printf("Stock ready: %d/%d seats remaining\n", stock.Remaining, stock.Total)
	monitoring.SetStockRemaining(stock.Remaining)

	router := setupRouter()

	if apiEnv == "local" {
		router.Use(cors.Default())
	} else {
		cc := cors.DefaultConfig()
		cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "PUT", "DELETE", "HEAD")
		cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization")
		cc.AllowOrigins = []string{os.Getenv("APP_HOST")}
		router.Use(cors.New(cc))
	}

	registerValidators()

	router = maintenanceModeMiddleware(router)

	guestAuthRoutes(router)
	paymentWebhookRoute(router)

	apiv1 := apiv1Group(router)
	purchaseHandlers(apiv1)
	validationHandlers(apiv1)

	admin := apiv1.Group("/admin")
	admin.Use(middlewares.AuthMiddleware)
	adminHandlers(admin)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	startStatsJob()

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server error: %s", err.Error())
	}
}
