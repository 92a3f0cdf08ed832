package main

import (
	"log"
	"net/http"
	"os"

	"github.com/johnwonder/presto/engine"
	"github.com/johnwonder/presto/services"
	"github.com/labstack/echo/v4"
)

func main() {
	configuration, err := LoadConfiguration(os.Getenv("PRESTO_SERVER_CONFIGURATION_PATH"))
	if err != nil {
		panic(err)
	}

	leafs := map[string]*services.Leaf{}
	for _, stream := range configuration.Streams {
		tailer, err := services.NewTailer(configuration.InstanceId, configuration.Brokers, stream.Topic)
		if err != nil {
			panic(err)
		}

		defer tailer.Stop()
		tailer.Start()

		schema := stream.Schema
		leaf, err := services.NewLeaf(stream.Topic, &schema, tailer.Channel)
		if err != nil {
			panic(err)
		}

		defer leaf.Stop()
		leaf.Start()

		leafs[stream.Topic] = leaf
	}

	executionEngine := engine.NewEngine(configuration.BatchSize)

	e := echo.New()
	e.GET("/streams/:topic", func(context echo.Context) error { return getStream(&executionEngine, leafs, context) })
	e.GET("/streams/:topic/query", func(context echo.Context) error {
		err := query(&executionEngine, leafs, context)
		if err != nil {
			log.Println(err.Error())
		}

		return err
	})

	e.Logger.Fatal(e.Start(":1323"))
}

func getStream(executionEngine *engine.Engine, leafs map[string]*services.Leaf, context echo.Context) error {
	leaf, ok := leafs[context.Param("topic")]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown stream")
	}

	iterator := executionEngine.Scan(leaf)
	defer iterator.Close()

	return iteratorResponse(iterator, context)
}

func query(executionEngine *engine.Engine, leafs map[string]*services.Leaf, echoContext echo.Context) error {
	sql := echoContext.QueryParam("sql")
	if sql == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing sql query parameter")
	}

	p, err := engine.Plan(leafs, sql)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	iterator, err := executionEngine.Execute(leafs, p)
	if err != nil {
		return err
	}

	defer iterator.Close()

	return iteratorResponse(iterator, echoContext)
}

func iteratorResponse(iterator *engine.BatchIterator, context echo.Context) error {
	context.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	context.Response().WriteHeader(http.StatusOK)

	writer := context.Response()
	for iterator.Next() {
		batch := iterator.Value()

		count := batch.NumRows()
		for i := int64(0); i < count; i++ {
			record := batch.NewSlice(i, i+1)
			bytes, err := record.MarshalJSON()
			if err != nil {
				record.Release()
				return err
			}

			_, err = writer.Write(bytes[1 : len(bytes)-1])
			if err != nil {
				record.Release()
				return err
			}

			writer.Flush()
			record.Release()
		}

		batch.Release()
	}

	return nil
}
